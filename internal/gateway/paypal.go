package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"flippa/internal/models"
)

// PayPalAdapter drives the PayPal Orders v2 REST API. An order is created with
// a CAPTURE intent; the approve link is the buyer redirect and the order id
// doubles as the status-check token.
type PayPalAdapter struct {
	creds  CredentialSource
	client *http.Client
	// baseURL overrides mode-based resolution in tests.
	baseURL string
}

func NewPayPalAdapter(creds CredentialSource) *PayPalAdapter {
	return &PayPalAdapter{
		creds:  creds,
		client: &http.Client{Timeout: requestTimeout},
	}
}

func (a *PayPalAdapter) Name() models.PaymentGateway {
	return models.GatewayPayPal
}

func (a *PayPalAdapter) apiBase() string {
	if a.baseURL != "" {
		return a.baseURL
	}
	if a.creds.GatewayCredential("paypal", "mode", "sandbox") == "live" {
		return "https://api-m.paypal.com"
	}
	return "https://api-m.sandbox.paypal.com"
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href   string `json:"href"`
		Rel    string `json:"rel"`
		Method string `json:"method"`
	} `json:"links"`
}

func (a *PayPalAdapter) Initiate(ctx context.Context, amount float64, reference, payerEmail, description string) (*InitiationResult, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": reference,
				"custom_id":    reference,
				"description":  description,
				"amount": map[string]string{
					"currency_code": a.creds.GatewayCredential("paypal", "currency", "USD"),
					"value":         fmt.Sprintf("%.2f", amount),
				},
			},
		},
	}

	var order paypalOrderResponse
	if err := a.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", token, payload, &order); err != nil {
		return nil, err
	}

	approveURL := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approveURL = link.Href
			break
		}
	}
	if order.ID == "" || approveURL == "" {
		return nil, fmt.Errorf("paypal order response missing id or approve link")
	}

	return &InitiationResult{RedirectURL: approveURL, PollToken: order.ID}, nil
}

// CheckStatus retrieves the order. APPROVED means the buyer authorized the
// payment on the hosted page; COMPLETED means it was captured. Both settle the
// escrow here, capture bookkeeping stays on the PayPal side.
func (a *PayPalAdapter) CheckStatus(ctx context.Context, pollToken string) (*StatusResult, error) {
	token, err := a.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var order paypalOrderResponse
	if err := a.doJSON(ctx, http.MethodGet, "/v2/checkout/orders/"+pollToken, token, nil, &order); err != nil {
		return nil, err
	}

	paid := order.Status == "COMPLETED" || order.Status == "APPROVED"
	return &StatusResult{Paid: paid}, nil
}

func (a *PayPalAdapter) accessToken(ctx context.Context) (string, error) {
	clientID := a.creds.GatewayCredential("paypal", "client-id", "")
	clientSecret := a.creds.GatewayCredential("paypal", "client-secret", "")
	if clientID == "" || clientSecret == "" {
		return "", fmt.Errorf("paypal credentials not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase()+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(clientID, clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal token error (status %d): %s", resp.StatusCode, string(body))
	}

	var tok paypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("failed to decode paypal token response: %w", err)
	}
	return tok.AccessToken, nil
}

func (a *PayPalAdapter) doJSON(ctx context.Context, method, endpoint, token string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, a.apiBase()+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("paypal error (status %d): %s", resp.StatusCode, string(data))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode paypal response: %w", err)
	}
	return nil
}
