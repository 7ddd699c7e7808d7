package gateway

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"flippa/internal/models"
)

const paynowInitiateURL = "https://www.paynow.co.zw/interface/initiatetransaction"

// PayNowAdapter integrates with the PayNow Zimbabwe hosted-redirect gateway.
// Initiation returns a browser URL for the buyer and a poll URL; settlement is
// confirmed later by polling, not by a synchronous response.
type PayNowAdapter struct {
	creds       CredentialSource
	initiateURL string
	client      *http.Client
}

func NewPayNowAdapter(creds CredentialSource) *PayNowAdapter {
	return &PayNowAdapter{
		creds:       creds,
		initiateURL: paynowInitiateURL,
		client:      &http.Client{Timeout: requestTimeout},
	}
}

func (a *PayNowAdapter) Name() models.PaymentGateway {
	return models.GatewayPayNowZim
}

func (a *PayNowAdapter) Initiate(ctx context.Context, amount float64, reference, payerEmail, description string) (*InitiationResult, error) {
	integrationID := a.creds.GatewayCredential("paynow-zim", "integration-id", "")
	integrationKey := a.creds.GatewayCredential("paynow-zim", "integration-key", "")
	returnURL := a.creds.GatewayCredential("paynow-zim", "return-url", "http://localhost/payment/callback")
	resultURL := a.creds.GatewayCredential("paynow-zim", "result-url", "http://localhost/payment/callback")

	if integrationID == "" || integrationKey == "" {
		return nil, fmt.Errorf("paynow integration credentials not configured")
	}

	// Field order matters: the hash covers the values in posted order.
	fields := [][2]string{
		{"id", integrationID},
		{"reference", reference},
		{"amount", fmt.Sprintf("%.2f", amount)},
		{"additionalinfo", description},
		{"returnurl", returnURL},
		{"resulturl", resultURL},
		{"authemail", payerEmail},
		{"status", "Message"},
	}

	form := url.Values{}
	for _, f := range fields {
		form.Set(f[0], f[1])
	}
	form.Set("hash", paynowHash(fields, integrationKey))

	body, err := a.postForm(ctx, a.initiateURL, form)
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse paynow response: %w", err)
	}

	if !strings.EqualFold(values.Get("status"), "Ok") {
		errMsg := values.Get("error")
		if errMsg == "" {
			errMsg = "unknown error"
		}
		return nil, fmt.Errorf("paynow initiation failed: %s", errMsg)
	}

	return &InitiationResult{
		RedirectURL: values.Get("browserurl"),
		PollToken:   values.Get("pollurl"),
	}, nil
}

// CheckStatus polls the URL returned at initiation. PayNow reports
// "Awaiting Delivery" once funds have settled but the merchant has not
// acknowledged; both it and "Paid" count as paid.
func (a *PayNowAdapter) CheckStatus(ctx context.Context, pollToken string) (*StatusResult, error) {
	body, err := a.postForm(ctx, pollToken, url.Values{})
	if err != nil {
		return nil, err
	}

	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse paynow status response: %w", err)
	}

	status := values.Get("status")
	paid := strings.EqualFold(status, "Paid") || strings.EqualFold(status, "Awaiting Delivery")

	log.Printf("PayNow status check: %s -> %s", pollToken, status)
	return &StatusResult{Paid: paid}, nil
}

func (a *PayNowAdapter) postForm(ctx context.Context, endpoint string, form url.Values) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paynow request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read paynow response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paynow error (status %d): %s", resp.StatusCode, string(body))
	}
	return string(body), nil
}

// paynowHash is the SHA512 of the field values, in posted order, followed by
// the integration key, hex-encoded uppercase.
func paynowHash(fields [][2]string, integrationKey string) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f[1])
	}
	b.WriteString(integrationKey)

	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
