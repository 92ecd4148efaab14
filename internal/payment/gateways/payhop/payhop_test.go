package payhop

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/hirelink/hirelink/internal/config"
	"github.com/hirelink/hirelink/internal/payment/domain"
)

func newTestGateway(baseURL string) *Gateway {
	return &Gateway{
		conf: func() config.GatewayConfig {
			return config.GatewayConfig{
				BaseURL:        baseURL,
				APIKey:         "ph_test_123",
				MerchantID:     "m_42",
				CallbackSecret: "cb_secret",
			}
		},
		client: &http.Client{Timeout: 2 * time.Second},
	}
}

func TestOpenSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/checkout" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostFormValue("merchant_id"); got != "m_42" {
			t.Errorf("unexpected merchant_id: %q", got)
		}
		if got := r.PostFormValue("amount"); got != "7500" {
			t.Errorf("unexpected amount: %q", got)
		}
		fmt.Fprint(w, `{"checkout_id":"co_xyz","approval_url":"https://pay.payhop.test/co_xyz","state":"created"}`)
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	session, err := g.OpenSession(context.Background(), domain.SessionRequest{Amount: 7500, Currency: "gbp", Reference: "77"})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if session.Reference != "co_xyz" || session.RedirectURL != "https://pay.payhop.test/co_xyz" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.ClientSecret != "" {
		t.Fatalf("checkout flow has no client secret")
	}
}

func TestOpenSessionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	if _, err := g.OpenSession(context.Background(), domain.SessionRequest{Amount: 7500, Currency: "GBP"}); !errors.Is(err, domain.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	state := "approved"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/checkout/co_xyz" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprintf(w, `{"checkout_id":"co_xyz","state":%q}`, state)
	}))
	defer srv.Close()

	g := newTestGateway(srv.URL)
	got, err := g.CheckStatus(context.Background(), "co_xyz")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if got != domain.GatewayStatusSucceeded {
		t.Fatalf("expected succeeded, got %s", got)
	}

	state = "declined"
	got, err = g.CheckStatus(context.Background(), "co_xyz")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if got != domain.GatewayStatusFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}

func callbackRequest(t *testing.T, secret, checkoutID, state string) *http.Request {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(checkoutID + "|" + state))
	digest := hex.EncodeToString(mac.Sum(nil))

	form := url.Values{}
	form.Set("checkout_id", checkoutID)
	form.Set("state", state)
	form.Set("digest", digest)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/callbacks/payhop", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseCallback(t *testing.T) {
	g := newTestGateway("http://payhop.test")

	event, err := g.ParseCallback(callbackRequest(t, "cb_secret", "co_xyz", "approved"))
	if err != nil {
		t.Fatalf("parse callback: %v", err)
	}
	if event.Reference != "co_xyz" || event.Status != domain.GatewayStatusSucceeded {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestParseCallbackRejectsBadDigest(t *testing.T) {
	g := newTestGateway("http://payhop.test")

	if _, err := g.ParseCallback(callbackRequest(t, "other_secret", "co_xyz", "approved")); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestParseCallbackIgnoresNonTerminalStates(t *testing.T) {
	g := newTestGateway("http://payhop.test")

	if _, err := g.ParseCallback(callbackRequest(t, "cb_secret", "co_xyz", "created")); !errors.Is(err, domain.ErrEventIgnored) {
		t.Fatalf("expected ErrEventIgnored, got %v", err)
	}
}

func TestParseCallbackMissingFields(t *testing.T) {
	g := newTestGateway("http://payhop.test")

	req := httptest.NewRequest(http.MethodPost, "/api/payments/callbacks/payhop", strings.NewReader("state=approved"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if _, err := g.ParseCallback(req); !errors.Is(err, domain.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
