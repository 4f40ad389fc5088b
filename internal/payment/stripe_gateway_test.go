package payment_test

import (
	"net/url"
	"testing"

	"ms-payments/internal/logger"
	"ms-payments/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeURLCarriesConnectParams(t *testing.T) {
	gateway := payment.NewStripeGateway(logger.NewTestLogger())

	raw := gateway.AuthorizeURL("ca_123", "https://tickets.example.com/callback", "state_1")

	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "connect.stripe.com", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "ca_123", query.Get("client_id"))
	assert.Equal(t, "https://tickets.example.com/callback", query.Get("redirect_uri"))
	assert.Equal(t, "code", query.Get("response_type"))
	assert.Equal(t, "read_write", query.Get("scope"))
	assert.Equal(t, "state_1", query.Get("state"))
}
