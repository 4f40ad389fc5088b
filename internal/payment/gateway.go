package payment

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

// RequestOptions carries the resolved routing for exactly one remote call.
// It is recomputed from current configuration on every call and never
// cached, so a revoked connected account stops being used on the next call.
type RequestOptions struct {
	APIKey           string
	ConnectedAccount string
}

// Gateway is the remote payment API. The production implementation wraps
// the Stripe client; tests substitute a mock.
type Gateway interface {
	CreateCharge(ctx context.Context, params *stripe.ChargeParams, opts RequestOptions) (*stripe.Charge, error)
	RetrieveCharge(ctx context.Context, chargeID string, opts RequestOptions) (*stripe.Charge, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams, opts RequestOptions) (*stripe.Refund, error)
	RetrieveBalanceTransaction(ctx context.Context, id string, opts RequestOptions) (*stripe.BalanceTransaction, error)
	VerifyWebhook(payload []byte, signature, secret string) (stripe.Event, error)
	AuthorizeURL(clientID, redirectURI, state string) string
	ExchangeOAuthCode(ctx context.Context, code, clientSecret string) (*stripe.OAuthToken, error)
}
