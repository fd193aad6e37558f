package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

type StripeGateway struct {
	api      *client.API
	currency string
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return newStripeGateway(api, currency)
}

func newStripeGateway(api *client.API, currency string) *StripeGateway {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeGateway{api: api, currency: currency}
}

func (g *StripeGateway) Currency() string {
	return g.currency
}

func (g *StripeGateway) CreateChargeIntent(
	ctx context.Context,
	amountMinor int64,
	metadata map[string]string,
) (*ChargeIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(g.currency),
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &ChargeIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (g *StripeGateway) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := g.api.PaymentIntents.Get(chargeID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrChargeNotFound
		}
		return nil, fmt.Errorf("get payment intent: %w", err)
	}

	return &Charge{
		ID:          intent.ID,
		AmountMinor: intent.Amount,
		Currency:    string(intent.Currency),
		Succeeded:   intent.Status == stripe.PaymentIntentStatusSucceeded,
		Metadata:    intent.Metadata,
	}, nil
}
