package payment

import (
	"context"
	"errors"
	"fmt"

	"ms-payments/internal/settings"
)

// deauthorizedEventType is the gateway event emitted when an organizer
// disconnects their account from the platform.
const deauthorizedEventType = "account.application.deauthorized"

// revocationActor is recorded on webhook-driven credential deletions.
const revocationActor = "admin"

// WebhookStatus is the tri-state outcome of webhook processing.
type WebhookStatus int

const (
	// WebhookRejected means the body/signature pair could not be verified
	// or processing was impossible. Maps to an HTTP 4xx.
	WebhookRejected WebhookStatus = iota
	// WebhookIgnored means the event was verified but there was nothing to
	// do, e.g. a deauthorization for an unknown account.
	WebhookIgnored
	// WebhookProcessed means the event was verified and handled.
	WebhookProcessed
)

// ProcessWebhookEvent verifies an inbound webhook and reacts to account
// deauthorization by revoking the stored connected-account credential.
// It fails closed: any verification error is logged and reported as
// WebhookRejected, never raised.
func (m *Manager) ProcessWebhookEvent(ctx context.Context, body []byte, signature string) WebhookStatus {
	secret, err := m.webhookSignatureKey(ctx)
	if err != nil {
		m.log.Error("WEBHOOK", fmt.Sprintf("webhook signature key is not configured: %v", err))
		return WebhookRejected
	}

	event, err := m.gateway.VerifyWebhook(body, signature, secret)
	if err != nil {
		m.log.Error("WEBHOOK", fmt.Sprintf("webhook verification failed: %v", err))
		return WebhookRejected
	}

	if string(event.Type) == deauthorizedEventType {
		if m.revokeConnectedAccount(ctx, event.Account) {
			return WebhookProcessed
		}
		return WebhookIgnored
	}

	// Every other verified event type is accepted as a no-op.
	return WebhookProcessed
}

// revokeConnectedAccount deletes the stored credential of the organization
// owning accountID. Returns false when no organization matches.
func (m *Manager) revokeConnectedAccount(ctx context.Context, accountID string) bool {
	organizationID, err := m.settings.FindOrganizationByValue(ctx, settings.KeyStripeConnectedID, accountID)
	if err != nil {
		if !errors.Is(err, settings.ErrNotFound) {
			m.log.Error("WEBHOOK", fmt.Sprintf("cannot look up organization for account %s: %v", accountID, err))
		}
		return false
	}

	m.log.LogSecurity("REVOKE", fmt.Sprintf("revoking access token %s for organization %s", accountID, organizationID))
	key := settings.OrganizationKey(settings.KeyStripeConnectedID, organizationID)
	if err := m.settings.DeleteValue(ctx, key, revocationActor); err != nil {
		m.log.Error("WEBHOOK", fmt.Sprintf("cannot delete connected account %s: %v", accountID, err))
		return false
	}

	if m.events != nil {
		if err := m.events.PublishAccountDeauthorized(accountID, organizationID); err != nil {
			m.log.Warn("KAFKA", fmt.Sprintf("failed to publish deauthorization event for %s: %v", accountID, err))
		}
	}
	return true
}
