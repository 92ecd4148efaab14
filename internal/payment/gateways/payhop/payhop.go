package payhop

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hirelink/hirelink/internal/config"
	"github.com/hirelink/hirelink/internal/payment/domain"
)

// Gateway talks to the PayHop hosted-checkout API. The payer is redirected
// to an approval URL and the outcome comes back as a form-encoded callback
// carrying an HMAC digest over the checkout id and state.
type Gateway struct {
	conf   func() config.GatewayConfig
	client *http.Client
}

func New(holder *config.GatewaysConfigHolder) *Gateway {
	return &Gateway{
		conf:   func() config.GatewayConfig { return holder.Get().Payhop },
		client: &http.Client{Timeout: 12 * time.Second},
	}
}

func (g *Gateway) Name() string { return "payhop" }

type checkoutResponse struct {
	CheckoutID  string `json:"checkout_id"`
	ApprovalURL string `json:"approval_url"`
	State       string `json:"state"`
}

func (g *Gateway) OpenSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	cfg := g.conf()

	values := url.Values{}
	values.Set("merchant_id", cfg.MerchantID)
	values.Set("amount", strconv.FormatInt(req.Amount, 10))
	values.Set("currency", strings.ToUpper(req.Currency))
	values.Set("reference", req.Reference)

	var checkout checkoutResponse
	if err := g.doRequest(ctx, http.MethodPost, cfg.BaseURL+"/v2/checkout", values, &checkout); err != nil {
		return nil, err
	}
	if checkout.CheckoutID == "" || checkout.ApprovalURL == "" {
		return nil, domain.ErrGatewayUnavailable
	}

	return &domain.Session{
		Reference:   checkout.CheckoutID,
		RedirectURL: checkout.ApprovalURL,
	}, nil
}

func (g *Gateway) CheckStatus(ctx context.Context, reference string) (domain.GatewayStatus, error) {
	cfg := g.conf()

	var checkout checkoutResponse
	if err := g.doRequest(ctx, http.MethodGet, cfg.BaseURL+"/v2/checkout/"+reference, nil, &checkout); err != nil {
		return "", err
	}
	return mapState(checkout.State), nil
}

// ParseCallback reads the form fields checkout_id, state and digest, where
// digest = hex(hmac-sha256(secret, checkout_id + "|" + state)).
func (g *Gateway) ParseCallback(r *http.Request) (*domain.CallbackEvent, error) {
	if err := r.ParseForm(); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	checkoutID := strings.TrimSpace(r.PostFormValue("checkout_id"))
	state := strings.TrimSpace(r.PostFormValue("state"))
	digest := strings.TrimSpace(r.PostFormValue("digest"))
	if checkoutID == "" || state == "" || digest == "" {
		return nil, domain.ErrInvalidPayload
	}

	mac := hmac.New(sha256.New, []byte(g.conf().CallbackSecret))
	_, _ = mac.Write([]byte(checkoutID + "|" + state))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(digest), []byte(expected)) {
		return nil, domain.ErrInvalidSignature
	}

	status := mapState(state)
	if !status.Terminal() {
		return nil, domain.ErrEventIgnored
	}
	return &domain.CallbackEvent{Reference: checkoutID, Status: status}, nil
}

func (g *Gateway) doRequest(ctx context.Context, method, endpoint string, values url.Values, out any) error {
	var reader *strings.Reader
	if values != nil {
		reader = strings.NewReader(values.Encode())
	} else {
		reader = strings.NewReader("")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.conf().APIKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return domain.ErrGatewayUnavailable
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("payhop request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapState(state string) domain.GatewayStatus {
	switch strings.TrimSpace(state) {
	case "approved":
		return domain.GatewayStatusSucceeded
	case "declined", "expired":
		return domain.GatewayStatusFailed
	default:
		return domain.GatewayStatusPending
	}
}
