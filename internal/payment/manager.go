package payment

import (
	"context"
	"fmt"
	"strconv"

	"ms-payments/internal/logger"
	"ms-payments/internal/models"
	"ms-payments/internal/settings"
	"ms-payments/internal/tickets"

	"github.com/stripe/stripe-go/v82"
)

// Fee-type labels on a Stripe balance transaction.
const (
	feeTypeStripe      = "stripe_fee"
	feeTypeApplication = "application_fee"
)

// Manager orchestrates charge, refund and payment-info calls against the
// remote gateway, resolving per-tenant routing on every call.
type Manager struct {
	settings *settings.Manager
	tickets  tickets.Counter
	gateway  Gateway
	states   StateStore
	events   EventPublisher
	log      *logger.Logger
}

// EventPublisher streams payment lifecycle events. Publishing is best
// effort; a nil publisher disables it.
type EventPublisher interface {
	PublishChargeSucceeded(chargeID, reservationID string, amount int64) error
	PublishRefundOutcome(chargeID string, amount *int64, succeeded bool) error
	PublishAccountDeauthorized(accountID, organizationID string) error
}

func NewManager(cfg *settings.Manager, counter tickets.Counter, gateway Gateway, states StateStore, events EventPublisher, log *logger.Logger) *Manager {
	return &Manager{
		settings: cfg,
		tickets:  counter,
		gateway:  gateway,
		states:   states,
		events:   events,
		log:      log,
	}
}

func (m *Manager) connectEnabled(ctx context.Context, event models.Event) bool {
	key := settings.TenantKey(settings.KeyPlatformModeEnabled, event.OrganizationID, event.EventID)
	return m.settings.BoolValue(ctx, key, false)
}

func (m *Manager) systemAPIKey(ctx context.Context) (string, error) {
	return m.settings.RequiredValue(ctx, settings.SystemKey(settings.KeyStripeSecretKey))
}

func (m *Manager) tenantSecretKey(ctx context.Context, event models.Event) (string, error) {
	return m.settings.RequiredValue(ctx, settings.TenantKey(settings.KeyStripeSecretKey, event.OrganizationID, event.EventID))
}

func (m *Manager) webhookSignatureKey(ctx context.Context) (string, error) {
	return m.settings.RequiredValue(ctx, settings.SystemKey(settings.KeyStripeWebhookKey))
}

// PublicKey returns the publishable key the checkout page should use for
// the card widget: the platform's own key when connect mode is on, the
// tenant's otherwise.
func (m *Manager) PublicKey(ctx context.Context, event models.Event) (string, error) {
	if m.connectEnabled(ctx, event) {
		return m.settings.RequiredValue(ctx, settings.SystemKey(settings.KeyStripePublicKey))
	}
	return m.settings.RequiredValue(ctx, settings.TenantKey(settings.KeyStripePublicKey, event.OrganizationID, event.EventID))
}

// options resolves the routing for one remote call. Connect mode routes
// through the platform's own key plus the tenant's connected account;
// direct mode uses the tenant's own secret key.
func (m *Manager) options(ctx context.Context, event models.Event) (RequestOptions, error) {
	if m.connectEnabled(ctx, event) {
		account, err := m.settings.RequiredValue(ctx, settings.TenantKey(settings.KeyStripeConnectedID, event.OrganizationID, event.EventID))
		if err != nil {
			return RequestOptions{}, err
		}
		apiKey, err := m.systemAPIKey(ctx)
		if err != nil {
			return RequestOptions{}, err
		}
		return RequestOptions{APIKey: apiKey, ConnectedAccount: account}, nil
	}

	apiKey, err := m.tenantSecretKey(ctx, event)
	if err != nil {
		return RequestOptions{}, err
	}
	return RequestOptions{APIKey: apiKey}, nil
}

// calculateFee returns the platform fee for the charge, or nil when
// connect mode is disabled and no fee must be sent.
func (m *Manager) calculateFee(ctx context.Context, event models.Event, numTickets int, amountMinor int64) (*int64, error) {
	if !m.connectEnabled(ctx, event) {
		return nil, nil
	}
	feeSpec := m.settings.StringValue(ctx, settings.TenantKey(settings.KeyPlatformFee, event.OrganizationID, event.EventID), "0")
	minimumFee := m.settings.StringValue(ctx, settings.TenantKey(settings.KeyPlatformMinimumFee, event.OrganizationID, event.EventID), "0")
	fee, err := CalculateFee(feeSpec, minimumFee, numTickets, amountMinor)
	if err != nil {
		return nil, err
	}
	return &fee, nil
}

// ChargeCreditCard submits a single-use token charge. The token comes
// from the client-side card widget and can charge the card exactly once.
//
// Gateway failures are returned raw; the caller applies the Classifier so
// classification stays centralized for every remote call.
func (m *Manager) ChargeCreditCard(ctx context.Context, token string, amountMinor int64, event models.Event, reservationID, email, fullName, billingAddress string) (*stripe.Charge, error) {
	numTickets, err := m.tickets.CountTicketsInReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets for reservation %s: %w", reservationID, err)
	}

	fee, err := m.calculateFee(ctx, event, numTickets, amountMinor)
	if err != nil {
		return nil, err
	}

	opts, err := m.options(ctx, event)
	if err != nil {
		return nil, err
	}

	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(amountMinor),
		Currency:    stripe.String(event.Currency),
		Description: stripe.String(fmt.Sprintf("%d ticket(s) for event %s", numTickets, event.DisplayName)),
	}
	if fee != nil {
		params.ApplicationFeeAmount = fee
	}
	if err := params.SetSource(token); err != nil {
		return nil, fmt.Errorf("invalid payment token: %w", err)
	}
	params.AddMetadata("reservationId", reservationID)
	params.AddMetadata("email", email)
	params.AddMetadata("fullName", fullName)
	if billingAddress != "" {
		params.AddMetadata("billingAddress", billingAddress)
	}

	charge, err := m.gateway.CreateCharge(ctx, params, opts)
	if err != nil {
		return nil, err
	}

	m.log.Info("STRIPE", fmt.Sprintf("charge %s created for reservation %s, amount: %d %s", charge.ID, reservationID, amountMinor, event.Currency))
	if m.events != nil {
		if err := m.events.PublishChargeSucceeded(charge.ID, reservationID, amountMinor); err != nil {
			m.log.Warn("KAFKA", fmt.Sprintf("failed to publish charge event for %s: %v", charge.ID, err))
		}
	}
	return charge, nil
}

// Refund refunds a charge, fully when amount is nil. It never returns an
// error: any failure is logged and reported as false, so callers treat a
// false result and a remote failure identically.
func (m *Manager) Refund(ctx context.Context, tx models.Transaction, event models.Event, amount *int64) bool {
	chargeID := tx.TransactionID
	amountOrFull := "full"
	if amount != nil {
		amountOrFull = strconv.FormatInt(*amount, 10)
	}
	m.log.Info("STRIPE", fmt.Sprintf("trying to refund payment %s with amount: %s", chargeID, amountOrFull))

	opts, err := m.options(ctx, event)
	if err != nil {
		m.log.Warn("STRIPE", fmt.Sprintf("cannot resolve request options to refund payment %s: %v", chargeID, err))
		return false
	}

	params := &stripe.RefundParams{Charge: stripe.String(chargeID)}
	if amount != nil {
		params.Amount = stripe.Int64(*amount)
	}
	if m.connectEnabled(ctx, event) {
		params.RefundApplicationFee = stripe.Bool(true)
	}

	refund, err := m.gateway.CreateRefund(ctx, params, opts)
	if err != nil {
		m.log.Warn("STRIPE", fmt.Sprintf("was not able to refund payment %s: %v", chargeID, err))
		m.publishRefundOutcome(chargeID, amount, false)
		return false
	}
	if refund.Status != stripe.RefundStatusSucceeded {
		m.log.Warn("STRIPE", fmt.Sprintf("was not able to refund payment %s, returned status is not 'succeeded' but %s", chargeID, refund.Status))
		m.publishRefundOutcome(chargeID, amount, false)
		return false
	}

	m.log.Info("STRIPE", fmt.Sprintf("refund for payment %s executed with success for amount: %s", chargeID, amountOrFull))
	m.publishRefundOutcome(chargeID, amount, true)
	return true
}

func (m *Manager) publishRefundOutcome(chargeID string, amount *int64, succeeded bool) {
	if m.events == nil {
		return
	}
	if err := m.events.PublishRefundOutcome(chargeID, amount, succeeded); err != nil {
		m.log.Warn("KAFKA", fmt.Sprintf("failed to publish refund event for %s: %v", chargeID, err))
	}
}

// GetInfo retrieves the paid/refunded amounts and the fee breakdown of a
// recorded charge. A remote failure means the information is unavailable,
// not that the operation failed: the result is (nil, nil).
func (m *Manager) GetInfo(ctx context.Context, tx models.Transaction, event models.Event) (*models.PaymentInformation, error) {
	opts, err := m.options(ctx, event)
	if err != nil {
		return nil, err
	}

	charge, err := m.gateway.RetrieveCharge(ctx, tx.TransactionID, opts)
	if err != nil {
		m.log.Debug("STRIPE", fmt.Sprintf("payment information unavailable for %s: %v", tx.TransactionID, err))
		return nil, nil
	}

	balanceTransactionID := ""
	if charge.BalanceTransaction != nil {
		balanceTransactionID = charge.BalanceTransaction.ID
	}
	balanceTransaction, err := m.gateway.RetrieveBalanceTransaction(ctx, balanceTransactionID, opts)
	if err != nil {
		m.log.Debug("STRIPE", fmt.Sprintf("fee breakdown unavailable for %s: %v", tx.TransactionID, err))
		return nil, nil
	}

	return &models.PaymentInformation{
		PaidAmount:     charge.Amount,
		RefundedAmount: charge.AmountRefunded,
		GatewayFee:     feeAmount(balanceTransaction.FeeDetails, feeTypeStripe),
		PlatformFee:    feeAmount(balanceTransaction.FeeDetails, feeTypeApplication),
	}, nil
}

func feeAmount(fees []*stripe.BalanceTransactionFeeDetail, feeType string) *int64 {
	for _, fee := range fees {
		if fee != nil && fee.Type == feeType {
			amount := fee.Amount
			return &amount
		}
	}
	return nil
}
