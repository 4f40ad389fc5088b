package payment_test

import (
	"context"
	"testing"

	"ms-payments/internal/payment"
	"ms-payments/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
)

func orgResolver(name string) settings.Key {
	return settings.OrganizationKey(name, "org1")
}

func TestConnectURLDefaultsCallbackToBaseURL(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, orgResolver(settings.KeyStripeSecretKey), "sk_org")
	store.Set(ctx, orgResolver(settings.KeyStripeConnectClientID), "ca_123")
	store.Set(ctx, settings.SystemKey(settings.KeyBaseURL), "https://tickets.example.com")

	states := newMemStateStore()
	gateway := new(mockGateway)
	gateway.On("AuthorizeURL", "ca_123", "https://tickets.example.com"+payment.ConnectRedirectPath, mock.AnythingOfType("string")).
		Return("https://connect.stripe.com/oauth/authorize?client_id=ca_123")

	manager := newTestManager(store, gateway, new(mockCounter), states)
	connectURL, err := manager.ConnectURL(ctx, orgResolver)
	require.NoError(t, err)
	assert.NotEmpty(t, connectURL.AuthorizationURL)
	assert.NotEmpty(t, connectURL.State)
	assert.NotEmpty(t, connectURL.Code)
	assert.NotEqual(t, connectURL.State, connectURL.Code)

	// The state token is stored for the callback to consume.
	_, ok := states.Consume(ctx, connectURL.State)
	assert.True(t, ok)
	gateway.AssertExpectations(t)
}

func TestConnectURLUsesConfiguredCallback(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, orgResolver(settings.KeyStripeSecretKey), "sk_org")
	store.Set(ctx, orgResolver(settings.KeyStripeConnectClientID), "ca_123")
	store.Set(ctx, orgResolver(settings.KeyStripeConnectCallback), "https://custom.example.com/callback")

	gateway := new(mockGateway)
	gateway.On("AuthorizeURL", "ca_123", "https://custom.example.com/callback", mock.AnythingOfType("string")).
		Return("https://connect.stripe.com/oauth/authorize")

	manager := newTestManager(store, gateway, new(mockCounter), newMemStateStore())
	_, err := manager.ConnectURL(ctx, orgResolver)
	require.NoError(t, err)
	gateway.AssertExpectations(t)
}

func TestConnectURLMissingClientID(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, orgResolver(settings.KeyStripeSecretKey), "sk_org")

	manager := newTestManager(store, new(mockGateway), new(mockCounter), newMemStateStore())
	_, err := manager.ConnectURL(ctx, orgResolver)
	assert.ErrorIs(t, err, settings.ErrMissingConfiguration)
}

func TestConsumeStateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, orgResolver(settings.KeyStripeSecretKey), "sk_org")
	store.Set(ctx, orgResolver(settings.KeyStripeConnectClientID), "ca_123")
	store.Set(ctx, settings.SystemKey(settings.KeyBaseURL), "https://tickets.example.com")

	gateway := new(mockGateway)
	gateway.On("AuthorizeURL", mock.Anything, mock.Anything, mock.Anything).Return("https://connect.stripe.com/oauth/authorize")

	manager := newTestManager(store, gateway, new(mockCounter), newMemStateStore())
	connectURL, err := manager.ConnectURL(ctx, orgResolver)
	require.NoError(t, err)

	assert.True(t, manager.ConsumeState(ctx, connectURL.State))
	assert.False(t, manager.ConsumeState(ctx, connectURL.State))
	assert.False(t, manager.ConsumeState(ctx, "never-issued"))
}

func TestStoreConnectedAccount(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, settings.SystemKey(settings.KeyStripeSecretKey), "sk_platform")

	gateway := new(mockGateway)
	gateway.On("ExchangeOAuthCode", mock.Anything, "auth_code", "sk_platform").
		Return(&stripe.OAuthToken{StripeUserID: "acct_9"}, nil)

	manager := newTestManager(store, gateway, new(mockCounter), nil)
	result := manager.StoreConnectedAccount(ctx, "auth_code", orgResolver)

	assert.True(t, result.Success)
	assert.Equal(t, "acct_9", result.AccountID)
	assert.Empty(t, result.ErrorMessage)

	stored, err := store.Get(ctx, orgResolver(settings.KeyStripeConnectedID))
	require.NoError(t, err)
	assert.Equal(t, "acct_9", stored)
}

func TestStoreConnectedAccountExchangeFailureIsStructured(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, settings.SystemKey(settings.KeyStripeSecretKey), "sk_platform")

	gateway := new(mockGateway)
	gateway.On("ExchangeOAuthCode", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &stripe.Error{Type: stripe.ErrorTypeInvalidRequest, Msg: "invalid grant"})

	manager := newTestManager(store, gateway, new(mockCounter), nil)
	result := manager.StoreConnectedAccount(ctx, "bad_code", orgResolver)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)

	_, err := store.Get(ctx, orgResolver(settings.KeyStripeConnectedID))
	assert.ErrorIs(t, err, settings.ErrNotFound)
}

func TestStoreConnectedAccountEmptyAccountID(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.Set(ctx, settings.SystemKey(settings.KeyStripeSecretKey), "sk_platform")

	gateway := new(mockGateway)
	gateway.On("ExchangeOAuthCode", mock.Anything, mock.Anything, mock.Anything).
		Return(&stripe.OAuthToken{}, nil)

	manager := newTestManager(store, gateway, new(mockCounter), nil)
	result := manager.StoreConnectedAccount(ctx, "auth_code", orgResolver)
	assert.False(t, result.Success)
}
