package execution

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRepository_Integration connects to a real PostgreSQL via DATABASE_URL
// and verifies guarded status transitions and the per-proposal uniqueness
// constraint.
func TestRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	var exists bool
	if err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'executions')`).
		Scan(&exists); err != nil || !exists {
		t.Skip("database schema missing; apply migrations/001_init.sql first")
	}

	// Seed a treasury for the foreign key.
	var treasuryID string
	if err := pool.QueryRow(ctx,
		`INSERT INTO treasuries (address, secret_key) VALUES ($1, $2) RETURNING id`,
		fmt.Sprintf("0xit%d", time.Now().UnixNano()), []byte("sealed")).Scan(&treasuryID); err != nil {
		t.Fatalf("seed treasury: %v", err)
	}

	repo := NewRepository(pool)
	pid := fmt.Sprintf("1-%d", time.Now().UnixNano())

	created, err := repo.Create(ctx, Execution{
		ID:                newUUID(t, pool),
		OnChainProposalID: pid,
		Title:             "Donate to water project",
		Description:       "Donate 0.0001 ETH",
		TreasuryID:        treasuryID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Status != StatusPending {
		t.Fatalf("expected pending, got %s", created.Status)
	}
	if created.Result != nil || created.Error != nil {
		t.Fatal("fresh execution must carry neither result nor error")
	}

	// Duplicate proposal id must conflict.
	if _, err := repo.Create(ctx, Execution{
		ID:                newUUID(t, pool),
		OnChainProposalID: pid,
		Title:             "again",
		Description:       "again",
		TreasuryID:        treasuryID,
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// success before running must be rejected.
	if err := repo.MarkSucceeded(ctx, created.ID, map[string]any{"tx_hash": "0x1"}); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus for pending → success, got %v", err)
	}

	if err := repo.MarkRunning(ctx, created.ID); err != nil {
		t.Fatalf("mark running: %v", err)
	}
	if err := repo.MarkRunning(ctx, created.ID); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus for running → running, got %v", err)
	}

	if err := repo.MarkSucceeded(ctx, created.ID, map[string]any{"tx_hash": "0xabc"}); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}

	// Terminal states are frozen.
	if err := repo.MarkFailed(ctx, created.ID, "late failure"); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus for success → failed, got %v", err)
	}

	got, err := repo.GetByProposalID(ctx, pid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", got.Status)
	}
	if got.Result["tx_hash"] != "0xabc" {
		t.Fatalf("expected stored result, got %v", got.Result)
	}
	if got.Error != nil {
		t.Fatalf("success must carry no error, got %q", *got.Error)
	}

	if _, err := repo.GetByProposalID(ctx, "no-such-proposal"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func newUUID(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()

	var id string
	if err := pool.QueryRow(context.Background(), `SELECT gen_random_uuid()::text`).Scan(&id); err != nil {
		t.Fatalf("generate uuid: %v", err)
	}
	return id
}
