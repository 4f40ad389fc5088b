package tickets

import (
	"context"
	"fmt"

	"ms-payments/internal/logger"

	"github.com/uptrace/bun"
)

// Ticket is the slice of the ticketing schema this service reads.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID            string `bun:"id,pk"`
	ReservationID string `bun:"reservation_id,notnull"`
	EventID       string `bun:"event_id,notnull"`
	Status        string `bun:"status,notnull"`
}

// Counter supplies the number of tickets in a reservation, used to scale
// the minimum platform fee.
type Counter interface {
	CountTicketsInReservation(ctx context.Context, reservationID string) (int, error)
}

type DB struct {
	Bun *bun.DB
	Log *logger.Logger
}

// Migrate creates the tickets table if it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*Ticket)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create tickets table: %w", err)
	}
	d.Log.LogDatabase("MIGRATE", "tickets", "tickets table ready")
	return nil
}

func (d *DB) CountTicketsInReservation(ctx context.Context, reservationID string) (int, error) {
	count, err := d.Bun.NewSelect().
		Model((*Ticket)(nil)).
		Where("reservation_id = ?", reservationID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets for reservation %s: %w", reservationID, err)
	}
	return count, nil
}
