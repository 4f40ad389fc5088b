package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-payments/internal/logger"

	"github.com/uptrace/bun"
)

// BunStore persists settings in the settings table.
type BunStore struct {
	Bun *bun.DB
	Log *logger.Logger
}

func NewBunStore(db *bun.DB, log *logger.Logger) *BunStore {
	return &BunStore{Bun: db, Log: log}
}

// Migrate creates the settings table if it does not exist.
func (s *BunStore) Migrate(ctx context.Context) error {
	_, err := s.Bun.NewCreateTable().
		Model((*Setting)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}
	s.Log.LogDatabase("MIGRATE", "settings", "settings table ready")
	return nil
}

func (s *BunStore) Get(ctx context.Context, key Key) (string, error) {
	var setting Setting
	err := s.Bun.NewSelect().
		Model(&setting).
		Where("name = ?", key.Name).
		Where("organization_id = ?", key.OrganizationID).
		Where("event_id = ?", key.EventID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key.Name, err)
	}
	return setting.Value, nil
}

func (s *BunStore) Set(ctx context.Context, key Key, value string) error {
	setting := Setting{
		OrganizationID: key.OrganizationID,
		EventID:        key.EventID,
		Name:           key.Name,
		Value:          value,
	}

	// One row per (name, organization, event): update in place when present.
	res, err := s.Bun.NewUpdate().
		Model(&setting).
		Column("value").
		Where("name = ?", key.Name).
		Where("organization_id = ?", key.OrganizationID).
		Where("event_id = ?", key.EventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update setting %s: %w", key.Name, err)
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		s.Log.LogDatabase("UPDATE", "settings", fmt.Sprintf("setting %s updated", key.Name))
		return nil
	}

	if _, err := s.Bun.NewInsert().Model(&setting).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert setting %s: %w", key.Name, err)
	}
	s.Log.LogDatabase("INSERT", "settings", fmt.Sprintf("setting %s created", key.Name))
	return nil
}

func (s *BunStore) Delete(ctx context.Context, key Key, actor string) error {
	_, err := s.Bun.NewDelete().
		Model((*Setting)(nil)).
		Where("name = ?", key.Name).
		Where("organization_id = ?", key.OrganizationID).
		Where("event_id = ?", key.EventID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key.Name, err)
	}
	s.Log.LogDatabase("DELETE", "settings", fmt.Sprintf("setting %s deleted by %s", key.Name, actor))
	return nil
}

func (s *BunStore) FindOrganizationByValue(ctx context.Context, name, value string) (string, error) {
	var setting Setting
	err := s.Bun.NewSelect().
		Model(&setting).
		Where("name = ?", name).
		Where("value = ?", value).
		Where("organization_id != ''").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to look up setting %s by value: %w", name, err)
	}
	return setting.OrganizationID, nil
}
