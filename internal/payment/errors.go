package payment

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"ms-payments/internal/logger"

	"github.com/stripe/stripe-go/v82"
)

// FailureKind is the closed set of remote-API failure categories.
type FailureKind int

const (
	FailureGeneric FailureKind = iota
	FailureCardDeclined
	FailureInvalidRequest
	FailureAuthentication
	FailureConnectivity
)

func (k FailureKind) String() string {
	switch k {
	case FailureCardDeclined:
		return "card_declined"
	case FailureInvalidRequest:
		return "invalid_request"
	case FailureAuthentication:
		return "authentication"
	case FailureConnectivity:
		return "connectivity"
	case FailureGeneric:
		return "generic"
	default:
		return fmt.Sprintf("failure_kind(%d)", int(k))
	}
}

// Stable user-facing message codes. Card and invalid-request failures get
// codes derived from the gateway response; everything else collapses to a
// fixed abort or unexpected code so internal detail never leaks.
const (
	messageCodePrefix     = "error.STEP2_STRIPE_"
	MessageCodeAbort      = "error.STEP2_STRIPE_abort"
	MessageCodeUnexpected = "error.STEP2_STRIPE_unexpected"
)

// Classify maps a remote-API failure into a FailureKind.
func Classify(err error) FailureKind {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		// A bad or revoked API key comes back as a 401 tagged
		// invalid_request, so the status check must run first.
		if serr.HTTPStatusCode == http.StatusUnauthorized {
			return FailureAuthentication
		}
		switch serr.Err.(type) {
		case *stripe.CardError:
			return FailureCardDeclined
		case *stripe.InvalidRequestError:
			return FailureInvalidRequest
		}
		// Older responses may carry only the type tag.
		switch serr.Type {
		case stripe.ErrorTypeCard:
			return FailureCardDeclined
		case stripe.ErrorTypeInvalidRequest:
			return FailureInvalidRequest
		}
		return FailureGeneric
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return FailureConnectivity
	}
	return FailureGeneric
}

// Classifier converts remote-API failures into stable message codes for
// the user-facing layer, logging server-side only for the categories that
// signal an operational problem.
type Classifier struct {
	log *logger.Logger
}

func NewClassifier(log *logger.Logger) *Classifier {
	return &Classifier{log: log}
}

// MessageCode classifies err and returns its message code.
func (c *Classifier) MessageCode(err error) string {
	return c.CodeForKind(Classify(err), err)
}

// CodeForKind returns the message code for an already classified failure.
// The switch is total: the default arm guarantees every kind, even an
// unknown one, maps to a code.
func (c *Classifier) CodeForKind(kind FailureKind, err error) string {
	switch kind {
	case FailureCardDeclined:
		// Expected, user-caused. No log noise.
		return messageCodePrefix + string(stripeCode(err))
	case FailureInvalidRequest:
		return messageCodePrefix + "invalid_" + stripeParam(err)
	case FailureAuthentication:
		c.log.Error("STRIPE", fmt.Sprintf("authentication failure, please fix configuration: %v", err))
		return MessageCodeAbort
	case FailureConnectivity:
		c.log.Error("STRIPE", fmt.Sprintf("unable to connect to the Stripe API: %v", err))
		return MessageCodeAbort
	case FailureGeneric:
		c.log.Error("STRIPE", fmt.Sprintf("unexpected error during transaction: %v", err))
		return MessageCodeUnexpected
	default:
		c.log.Warn("STRIPE", fmt.Sprintf("no handler for failure kind %s, falling back to the generic one", kind))
		return MessageCodeUnexpected
	}
}

func stripeCode(err error) stripe.ErrorCode {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ""
}

func stripeParam(err error) string {
	var serr *stripe.Error
	if errors.As(err, &serr) {
		return serr.Param
	}
	return ""
}
