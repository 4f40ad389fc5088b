package payment

import (
	"context"
	"fmt"

	"ms-payments/internal/settings"

	"github.com/google/uuid"
)

// ConnectRedirectPath is appended to the platform base URL when no
// explicit OAuth callback is configured.
const ConnectRedirectPath = "/admin/configuration/payment/stripe/authorize"

// ConnectURL is everything the caller needs to start the OAuth flow: the
// URL to redirect the organizer's browser to, plus the state token the
// callback must present.
type ConnectURL struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
	Code             string `json:"code"`
}

// ConnectResult is the outcome of the token exchange. It always carries a
// renderable result; the exchange boundary never surfaces a raw error.
type ConnectResult struct {
	AccountID    string `json:"account_id,omitempty"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ConnectURL builds the authorization URL for the OAuth connect flow. The
// resolver picks the scope the client id, secret and callback are read
// from. The returned state token is stored single-use and must come back
// on the callback.
func (m *Manager) ConnectURL(ctx context.Context, resolve settings.KeyResolver) (*ConnectURL, error) {
	// The secret is not part of the URL but a tenant without one cannot
	// complete the flow, so fail before redirecting anyone.
	if _, err := m.settings.RequiredValue(ctx, resolve(settings.KeyStripeSecretKey)); err != nil {
		return nil, err
	}
	clientID, err := m.settings.RequiredValue(ctx, resolve(settings.KeyStripeConnectClientID))
	if err != nil {
		return nil, err
	}

	callbackURL := m.settings.StringValue(ctx, resolve(settings.KeyStripeConnectCallback), "")
	if callbackURL == "" {
		baseURL, err := m.settings.RequiredValue(ctx, resolve(settings.KeyBaseURL))
		if err != nil {
			return nil, err
		}
		callbackURL = baseURL + ConnectRedirectPath
	}

	state := uuid.NewString()
	code := uuid.NewString()
	if m.states != nil {
		if err := m.states.Save(ctx, state, code); err != nil {
			return nil, err
		}
	}

	return &ConnectURL{
		AuthorizationURL: m.gateway.AuthorizeURL(clientID, callbackURL, state),
		State:            state,
		Code:             code,
	}, nil
}

// ConsumeState verifies and invalidates a state token returned on the
// OAuth callback. Each token works exactly once.
func (m *Manager) ConsumeState(ctx context.Context, state string) bool {
	if m.states == nil {
		return true
	}
	_, ok := m.states.Consume(ctx, state)
	return ok
}

// StoreConnectedAccount exchanges the authorization code for a connected
// account id and persists it under the resolved scope. This terminates an
// interactive redirect flow, so every failure is caught, logged and
// converted into a failed ConnectResult instead of an error.
func (m *Manager) StoreConnectedAccount(ctx context.Context, code string, resolve settings.KeyResolver) ConnectResult {
	// The token endpoint authenticates with the platform secret alone;
	// the client id only matters when building the authorize URL.
	clientSecret, err := m.systemAPIKey(ctx)
	if err != nil {
		m.log.Error("CONNECT", fmt.Sprintf("cannot resolve system api key: %v", err))
		return ConnectResult{Success: false, ErrorMessage: err.Error()}
	}

	token, err := m.gateway.ExchangeOAuthCode(ctx, code, clientSecret)
	if err != nil {
		m.log.Error("CONNECT", fmt.Sprintf("cannot retrieve account ID: %v", err))
		return ConnectResult{Success: false, ErrorMessage: err.Error()}
	}

	accountID := token.StripeUserID
	if accountID == "" {
		m.log.Error("CONNECT", "token response carries no connected account id")
		return ConnectResult{Success: false, ErrorMessage: "token response carries no connected account id"}
	}

	if err := m.settings.SaveValue(ctx, resolve(settings.KeyStripeConnectedID), accountID); err != nil {
		m.log.Error("CONNECT", fmt.Sprintf("cannot persist connected account id: %v", err))
		return ConnectResult{Success: false, ErrorMessage: err.Error()}
	}

	m.log.Info("CONNECT", fmt.Sprintf("connected account %s stored", accountID))
	return ConnectResult{AccountID: accountID, Success: true}
}
