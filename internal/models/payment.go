package models

// PaymentInformation is a read-only projection of a remote charge.
// All amounts are in minor currency units. GatewayFee and PlatformFee are
// nil when the corresponding fee-type record is absent from the balance
// transaction.
type PaymentInformation struct {
	PaidAmount     int64  `json:"paid_amount"`
	RefundedAmount int64  `json:"refunded_amount"`
	GatewayFee     *int64 `json:"gateway_fee,omitempty"`
	PlatformFee    *int64 `json:"platform_fee,omitempty"`
}

// ChargeRequest is the payload accepted by the charge endpoint.
type ChargeRequest struct {
	Token          string `json:"token"`
	Amount         int64  `json:"amount"`
	ReservationID  string `json:"reservation_id"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	BillingAddress string `json:"billing_address,omitempty"`
	Event          Event  `json:"event"`
}

// ChargeResponse is returned after a successful charge.
type ChargeResponse struct {
	ChargeID string `json:"charge_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// RefundRequest asks for a full refund when Amount is nil,
// otherwise a partial refund of Amount minor units.
type RefundRequest struct {
	Transaction Transaction `json:"transaction"`
	Event       Event       `json:"event"`
	Amount      *int64      `json:"amount,omitempty"`
}

// InfoRequest looks up the payment information of a recorded charge.
type InfoRequest struct {
	Transaction Transaction `json:"transaction"`
	Event       Event       `json:"event"`
}
