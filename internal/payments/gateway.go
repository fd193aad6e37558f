// Package payments talks to the external card gateway. The rest of the
// application only sees the Gateway interface.
package payments

import (
	"context"
	"errors"
	"math"
)

var ErrChargeNotFound = errors.New("charge not found")

// MetadataAppointmentKey links a gateway charge back to the appointment it
// pays for.
const MetadataAppointmentKey = "appointment"

type ChargeIntent struct {
	ID           string
	ClientSecret string
}

type Charge struct {
	ID          string
	AmountMinor int64
	Currency    string
	Succeeded   bool
	Metadata    map[string]string
}

type Gateway interface {
	CreateChargeIntent(ctx context.Context, amountMinor int64, metadata map[string]string) (*ChargeIntent, error)
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
	// Currency is the lowercase ISO code charges are created in.
	Currency() string
}

// ToMinorUnits converts a decimal amount (e.g. dollars) to the integer
// minor unit the gateway expects (e.g. cents).
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
