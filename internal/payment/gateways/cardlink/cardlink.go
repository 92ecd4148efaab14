package cardlink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hirelink/hirelink/internal/config"
	"github.com/hirelink/hirelink/internal/payment/domain"
)

const maxCallbackBody = 1 << 20

// Gateway talks to the Cardlink card-intent API. The flow is synchronous:
// an intent is opened with a client secret the payer's browser confirms,
// then Cardlink reports the outcome by signed webhook or poll.
type Gateway struct {
	conf   func() config.GatewayConfig
	client *http.Client
}

func New(holder *config.GatewaysConfigHolder) *Gateway {
	return &Gateway{
		conf:   func() config.GatewayConfig { return holder.Get().Cardlink },
		client: &http.Client{Timeout: 12 * time.Second},
	}
}

func (g *Gateway) Name() string { return "cardlink" }

type intentRequest struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Reference string            `json:"reference"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

func (g *Gateway) OpenSession(ctx context.Context, req domain.SessionRequest) (*domain.Session, error) {
	cfg := g.conf()

	body, err := json.Marshal(intentRequest{
		Amount:    req.Amount,
		Currency:  strings.ToLower(req.Currency),
		Reference: req.Reference,
		Metadata:  map[string]string{"payment_id": req.PaymentID.String()},
	})
	if err != nil {
		return nil, err
	}

	var intent intentResponse
	if err := g.doRequest(ctx, http.MethodPost, cfg.BaseURL+"/v1/intents", body, &intent); err != nil {
		return nil, err
	}
	if intent.ID == "" {
		return nil, domain.ErrGatewayUnavailable
	}

	return &domain.Session{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (g *Gateway) CheckStatus(ctx context.Context, reference string) (domain.GatewayStatus, error) {
	cfg := g.conf()

	var intent intentResponse
	if err := g.doRequest(ctx, http.MethodGet, cfg.BaseURL+"/v1/intents/"+reference, nil, &intent); err != nil {
		return "", err
	}
	return mapStatus(intent.Status), nil
}

type callbackEvent struct {
	Type string `json:"type"`
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

func (g *Gateway) ParseCallback(r *http.Request) (*domain.CallbackEvent, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		return nil, domain.ErrInvalidPayload
	}

	if err := g.verify(payload, r.Header); err != nil {
		return nil, err
	}

	var event callbackEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.Data.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	switch strings.TrimSpace(event.Type) {
	case "intent.succeeded":
		return &domain.CallbackEvent{Reference: event.Data.ID, Status: domain.GatewayStatusSucceeded}, nil
	case "intent.failed":
		return &domain.CallbackEvent{Reference: event.Data.ID, Status: domain.GatewayStatusFailed}, nil
	default:
		return nil, domain.ErrEventIgnored
	}
}

// verify checks the Cardlink-Signature header: "t=<unix>,v1=<hmac>" where the
// hmac covers "<t>.<payload>".
func (g *Gateway) verify(payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Cardlink-Signature"))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignature(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signed := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(g.conf().CallbackSecret))
	_, _ = mac.Write([]byte(signed))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func (g *Gateway) doRequest(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.conf().APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
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
		return fmt.Errorf("cardlink request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapStatus(status string) domain.GatewayStatus {
	switch strings.TrimSpace(status) {
	case "succeeded":
		return domain.GatewayStatusSucceeded
	case "failed", "canceled":
		return domain.GatewayStatusFailed
	default:
		return domain.GatewayStatusPending
	}
}

func parseSignature(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}
