package treasury

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
// and verifies the sealed key survives a database roundtrip.
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
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'treasuries')`).
		Scan(&exists); err != nil || !exists {
		t.Skip("database schema missing; apply migrations/001_init.sql first")
	}

	keybox, err := NewKeybox(testSealKey)
	if err != nil {
		t.Fatalf("keybox: %v", err)
	}
	repo := NewRepository(pool, keybox)

	address := fmt.Sprintf("0xit%d", time.Now().UnixNano())
	const secret = "4c0883a69102937d6231471b5dbb6204fe512961708279f5d3b9f0c8e1a2b3c4"

	created, err := repo.Create(ctx, address, secret)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" || created.Address != address {
		t.Fatalf("unexpected treasury %+v", created)
	}

	if _, err := repo.Create(ctx, address, secret); !errors.Is(err, ErrDuplicateAddress) {
		t.Fatalf("expected ErrDuplicateAddress, got %v", err)
	}

	found, err := repo.GetByAddress(ctx, address)
	if err != nil {
		t.Fatalf("get by address: %v", err)
	}
	if found.ID != created.ID {
		t.Fatalf("lookup returned %s, want %s", found.ID, created.ID)
	}

	// The stored bytes are sealed; only SecretKey can recover the original.
	var sealed []byte
	if err := pool.QueryRow(ctx,
		`SELECT secret_key FROM treasuries WHERE id = $1`, created.ID).Scan(&sealed); err != nil {
		t.Fatalf("read sealed key: %v", err)
	}
	if string(sealed) == secret {
		t.Fatal("secret key stored in the clear")
	}

	key, err := repo.SecretKey(ctx, created.ID)
	if err != nil {
		t.Fatalf("secret key: %v", err)
	}
	if key != secret {
		t.Fatalf("recovered key does not match")
	}

	if _, err := repo.GetByAddress(ctx, "0xno-such-treasury"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
