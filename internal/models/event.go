package models

// Event identifies the organizer-owned event a payment belongs to.
// The payment service only reads it; ownership stays with the ticketing side.
type Event struct {
	OrganizationID string `json:"organization_id"`
	EventID        string `json:"event_id"`
	Currency       string `json:"currency"`
	DisplayName    string `json:"display_name"`
}
