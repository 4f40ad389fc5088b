package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ms-payments/internal/logger"

	"github.com/uptrace/bun"
)

// Setting names. The same name can exist at system, organization and
// tenant (organization + event) scope; resolution walks from the most
// specific scope to the system one.
const (
	KeyPlatformModeEnabled   = "PLATFORM_MODE_ENABLED"
	KeyPlatformFee           = "PLATFORM_FEE"
	KeyPlatformMinimumFee    = "PLATFORM_MINIMUM_FEE"
	KeyStripeSecretKey       = "STRIPE_SECRET_KEY"
	KeyStripePublicKey       = "STRIPE_PUBLIC_KEY"
	KeyStripeWebhookKey      = "STRIPE_WEBHOOK_KEY"
	KeyStripeConnectClientID = "STRIPE_CONNECT_CLIENT_ID"
	KeyStripeConnectCallback = "STRIPE_CONNECT_CALLBACK"
	KeyStripeConnectedID     = "STRIPE_CONNECTED_ID"
	KeyBaseURL               = "BASE_URL"
)

var (
	ErrNotFound             = errors.New("setting not found")
	ErrMissingConfiguration = errors.New("required configuration value is not set")
)

// Setting is a single configuration row. Empty OrganizationID means system
// scope; empty EventID with a non-empty OrganizationID means organization
// scope.
type Setting struct {
	bun.BaseModel `bun:"table:settings"`

	ID             int64  `bun:"id,pk,autoincrement"`
	OrganizationID string `bun:"organization_id"`
	EventID        string `bun:"event_id"`
	Name           string `bun:"name,notnull"`
	Value          string `bun:"value,notnull"`
}

// Key addresses one setting in one scope.
type Key struct {
	Name           string
	OrganizationID string
	EventID        string
}

func SystemKey(name string) Key {
	return Key{Name: name}
}

func OrganizationKey(name, organizationID string) Key {
	return Key{Name: name, OrganizationID: organizationID}
}

func TenantKey(name, organizationID, eventID string) Key {
	return Key{Name: name, OrganizationID: organizationID, EventID: eventID}
}

// KeyResolver binds a setting name to a caller-chosen scope. The OAuth
// connect flow takes one so URL construction and token exchange resolve
// their keys identically.
type KeyResolver func(name string) Key

// Store persists settings. Get returns ErrNotFound for an unset key and
// never applies scope fallback; that is the Manager's job.
type Store interface {
	Get(ctx context.Context, key Key) (string, error)
	Set(ctx context.Context, key Key, value string) error
	Delete(ctx context.Context, key Key, actor string) error
	// FindOrganizationByValue returns the organization owning the setting
	// row with the given name and value, or ErrNotFound.
	FindOrganizationByValue(ctx context.Context, name, value string) (string, error)
}

// Manager resolves settings with scope fallback: tenant, then organization,
// then system. Every lookup goes back to the store, so a deleted value is
// gone on the next call.
type Manager struct {
	store Store
	log   *logger.Logger
}

func NewManager(store Store, log *logger.Logger) *Manager {
	return &Manager{store: store, log: log}
}

func (m *Manager) lookup(ctx context.Context, key Key) (string, error) {
	value, err := m.store.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if key.EventID != "" {
		return m.lookup(ctx, OrganizationKey(key.Name, key.OrganizationID))
	}
	if key.OrganizationID != "" {
		return m.lookup(ctx, SystemKey(key.Name))
	}
	return "", err
}

// RequiredValue resolves a setting and fails with ErrMissingConfiguration
// when it is unset in every reachable scope.
func (m *Manager) RequiredValue(ctx context.Context, key Key) (string, error) {
	value, err := m.lookup(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrMissingConfiguration, key.Name)
		}
		return "", err
	}
	return value, nil
}

// StringValue resolves a setting, falling back to def when unset.
func (m *Manager) StringValue(ctx context.Context, key Key, def string) string {
	value, err := m.lookup(ctx, key)
	if err != nil {
		return def
	}
	return value
}

// BoolValue resolves a boolean setting, falling back to def when unset or
// unparsable.
func (m *Manager) BoolValue(ctx context.Context, key Key, def bool) bool {
	value, err := m.lookup(ctx, key)
	if err != nil {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		m.log.Warn("SETTINGS", fmt.Sprintf("setting %s has non-boolean value %q, using default", key.Name, value))
		return def
	}
	return parsed
}

func (m *Manager) SaveValue(ctx context.Context, key Key, value string) error {
	return m.store.Set(ctx, key, value)
}

func (m *Manager) DeleteValue(ctx context.Context, key Key, actor string) error {
	return m.store.Delete(ctx, key, actor)
}

func (m *Manager) FindOrganizationByValue(ctx context.Context, name, value string) (string, error) {
	return m.store.FindOrganizationByValue(ctx, name, value)
}
