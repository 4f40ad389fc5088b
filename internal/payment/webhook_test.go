package payment_test

import (
	"context"
	"errors"
	"testing"

	"ms-payments/internal/payment"
	"ms-payments/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"
)

func webhookStore(t *testing.T) *memStore {
	t.Helper()
	store := newMemStore()
	store.Set(context.Background(), settings.SystemKey(settings.KeyStripeWebhookKey), "whsec_test")
	return store
}

func TestWebhookVerificationFailureIsRejected(t *testing.T) {
	gateway := new(mockGateway)
	gateway.On("VerifyWebhook", mock.Anything, "bad-sig", "whsec_test").
		Return(stripe.Event{}, errors.New("signature verification failed"))

	manager := newTestManager(webhookStore(t), gateway, new(mockCounter), nil)
	status := manager.ProcessWebhookEvent(context.Background(), []byte("{}"), "bad-sig")
	assert.Equal(t, payment.WebhookRejected, status)
}

func TestWebhookMissingSignatureKeyIsRejected(t *testing.T) {
	gateway := new(mockGateway)

	manager := newTestManager(newMemStore(), gateway, new(mockCounter), nil)
	status := manager.ProcessWebhookEvent(context.Background(), []byte("{}"), "sig")
	assert.Equal(t, payment.WebhookRejected, status)
	gateway.AssertNotCalled(t, "VerifyWebhook", mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhookDeauthorizationRevokesCredential(t *testing.T) {
	ctx := context.Background()
	store := webhookStore(t)
	store.Set(ctx, settings.OrganizationKey(settings.KeyStripeConnectedID, "org1"), "acct_1")

	gateway := new(mockGateway)
	gateway.On("VerifyWebhook", mock.Anything, "sig", "whsec_test").
		Return(stripe.Event{Type: "account.application.deauthorized", Account: "acct_1"}, nil)

	manager := newTestManager(store, gateway, new(mockCounter), nil)
	status := manager.ProcessWebhookEvent(ctx, []byte("{}"), "sig")
	assert.Equal(t, payment.WebhookProcessed, status)

	_, err := store.Get(ctx, settings.OrganizationKey(settings.KeyStripeConnectedID, "org1"))
	assert.ErrorIs(t, err, settings.ErrNotFound)
}

func TestWebhookDeauthorizationForUnknownAccountIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := webhookStore(t)
	store.Set(ctx, settings.OrganizationKey(settings.KeyStripeConnectedID, "org1"), "acct_1")

	gateway := new(mockGateway)
	gateway.On("VerifyWebhook", mock.Anything, "sig", "whsec_test").
		Return(stripe.Event{Type: "account.application.deauthorized", Account: "acct_other"}, nil)

	manager := newTestManager(store, gateway, new(mockCounter), nil)
	status := manager.ProcessWebhookEvent(ctx, []byte("{}"), "sig")
	assert.Equal(t, payment.WebhookIgnored, status)

	// The unrelated credential stays untouched.
	value, err := store.Get(ctx, settings.OrganizationKey(settings.KeyStripeConnectedID, "org1"))
	assert.NoError(t, err)
	assert.Equal(t, "acct_1", value)
}

func TestWebhookOtherEventTypesAreNoOps(t *testing.T) {
	gateway := new(mockGateway)
	gateway.On("VerifyWebhook", mock.Anything, "sig", "whsec_test").
		Return(stripe.Event{Type: "charge.succeeded"}, nil)

	manager := newTestManager(webhookStore(t), gateway, new(mockCounter), nil)
	status := manager.ProcessWebhookEvent(context.Background(), []byte("{}"), "sig")
	assert.Equal(t, payment.WebhookProcessed, status)
}
