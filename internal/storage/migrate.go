package storage

import (
	"context"
	"errors"
	"fmt"

	"sparkmatch/backend/internal/models"
)

// Key for the Postgres advisory lock guarding schema migrations. Arbitrary
// but must be identical in every process of the fleet.
const migrationLockKey = 874421309

// Migrate applies the schema under an advisory lock so only one process in
// the fleet runs migrations at a time; the rest wait and then no-op.
func (s *Service) Migrate(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	// A dedicated connection keeps the session-scoped lock pinned.
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", migrationLockKey)

	if err := s.DB.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Photo{},
		&models.Interaction{},
		&models.Match{},
		&models.Favorite{},
		&models.Conversation{},
		&models.Message{},
		&models.ReadCursor{},
		&models.Block{},
		&models.Report{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Canonical-pair invariants live in the database, not just in code.
	for _, stmt := range []string{
		"ALTER TABLE matches ADD CONSTRAINT chk_match_order CHECK (user1_id < user2_id)",
		"ALTER TABLE conversations ADD CONSTRAINT chk_conv_order CHECK (user1_id < user2_id)",
		"ALTER TABLE interactions ADD CONSTRAINT chk_no_self CHECK (actor_id <> target_id)",
	} {
		if err := s.DB.Exec(stmt).Error; err != nil && !isDuplicateObject(err) {
			return fmt.Errorf("apply constraint: %w", err)
		}
	}
	return nil
}

func isDuplicateObject(err error) bool {
	// 42710 duplicate_object, raised when the constraint already exists.
	return err != nil && (containsSQLState(err, "42710") || containsSQLState(err, "42P07"))
}

func containsSQLState(err error, state string) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == state
	}
	return false
}
