package payment

import (
	"context"

	"ms-payments/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/oauth"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeGateway is the production Gateway. A fresh client is built per
// call from the RequestOptions so credentials are never cached across
// tenants.
type StripeGateway struct {
	log *logger.Logger
}

func NewStripeGateway(log *logger.Logger) *StripeGateway {
	return &StripeGateway{log: log}
}

func (g *StripeGateway) clientFor(opts RequestOptions) *client.API {
	return client.New(opts.APIKey, nil)
}

func routeParams(ctx context.Context, params *stripe.Params, opts RequestOptions) {
	params.Context = ctx
	if opts.ConnectedAccount != "" {
		params.SetStripeAccount(opts.ConnectedAccount)
	}
}

func (g *StripeGateway) CreateCharge(ctx context.Context, params *stripe.ChargeParams, opts RequestOptions) (*stripe.Charge, error) {
	routeParams(ctx, &params.Params, opts)
	return g.clientFor(opts).Charges.New(params)
}

func (g *StripeGateway) RetrieveCharge(ctx context.Context, chargeID string, opts RequestOptions) (*stripe.Charge, error) {
	params := &stripe.ChargeParams{}
	routeParams(ctx, &params.Params, opts)
	return g.clientFor(opts).Charges.Get(chargeID, params)
}

func (g *StripeGateway) CreateRefund(ctx context.Context, params *stripe.RefundParams, opts RequestOptions) (*stripe.Refund, error) {
	routeParams(ctx, &params.Params, opts)
	return g.clientFor(opts).Refunds.New(params)
}

func (g *StripeGateway) RetrieveBalanceTransaction(ctx context.Context, id string, opts RequestOptions) (*stripe.BalanceTransaction, error) {
	params := &stripe.BalanceTransactionParams{}
	routeParams(ctx, &params.Params, opts)
	return g.clientFor(opts).BalanceTransactions.Get(id, params)
}

func (g *StripeGateway) VerifyWebhook(payload []byte, signature, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

func (g *StripeGateway) AuthorizeURL(clientID, redirectURI, state string) string {
	return oauth.AuthorizeURL(&stripe.AuthorizeURLParams{
		ClientID:     stripe.String(clientID),
		RedirectURI:  stripe.String(redirectURI),
		ResponseType: stripe.String("code"),
		Scope:        stripe.String("read_write"),
		State:        stripe.String(state),
	})
}

func (g *StripeGateway) ExchangeOAuthCode(ctx context.Context, code, clientSecret string) (*stripe.OAuthToken, error) {
	params := &stripe.OAuthTokenParams{
		GrantType:    stripe.String("authorization_code"),
		Code:         stripe.String(code),
		ClientSecret: stripe.String(clientSecret),
	}
	params.Context = ctx
	return g.clientFor(RequestOptions{APIKey: clientSecret}).OAuth.New(params)
}
