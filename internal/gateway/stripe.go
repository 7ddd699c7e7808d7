package gateway

import (
	"context"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"flippa/internal/models"
)

// StripeAdapter starts a hosted Checkout Session. The session URL is the buyer
// redirect and the session id is the poll token; settlement is confirmed by
// retrieving the session and checking its payment status.
type StripeAdapter struct {
	creds CredentialSource
}

func NewStripeAdapter(creds CredentialSource) *StripeAdapter {
	return &StripeAdapter{creds: creds}
}

func (a *StripeAdapter) Name() models.PaymentGateway {
	return models.GatewayStripe
}

func (a *StripeAdapter) api() (*client.API, error) {
	secretKey := a.creds.GatewayCredential("stripe", "secret-key", "")
	if secretKey == "" {
		return nil, fmt.Errorf("stripe secret key not configured")
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return sc, nil
}

func (a *StripeAdapter) Initiate(ctx context.Context, amount float64, reference, payerEmail, description string) (*InitiationResult, error) {
	sc, err := a.api()
	if err != nil {
		return nil, err
	}

	successURL := a.creds.GatewayCredential("stripe", "success-url", "http://localhost/payment/callback")
	cancelURL := a.creds.GatewayCredential("stripe", "cancel-url", "http://localhost/payment/callback")
	currency := a.creds.GatewayCredential("stripe", "currency", "usd")

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(reference),
		CustomerEmail:     stripe.String(payerEmail),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(currency),
					UnitAmount: stripe.Int64(int64(math.Round(amount * 100))),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(description),
					},
				},
			},
		},
	}
	params.Context = ctx

	session, err := sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session failed: %w", err)
	}

	return &InitiationResult{RedirectURL: session.URL, PollToken: session.ID}, nil
}

func (a *StripeAdapter) CheckStatus(ctx context.Context, pollToken string) (*StatusResult, error) {
	sc, err := a.api()
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := sc.CheckoutSessions.Get(pollToken, params)
	if err != nil {
		return nil, fmt.Errorf("stripe session retrieve failed: %w", err)
	}

	return &StatusResult{Paid: session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid}, nil
}
