package treasury

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that no treasury matches the given address or id.
	ErrNotFound = errors.New("treasury: not found")
	// ErrDuplicateAddress signals that the address is already registered.
	ErrDuplicateAddress = errors.New("treasury: address already exists")
)

// Repository handles data access for treasuries.
type Repository interface {
	Create(ctx context.Context, address, secretKeyHex string) (Treasury, error)
	GetByAddress(ctx context.Context, address string) (Treasury, error)
	SecretKey(ctx context.Context, treasuryID string) (string, error)
}

// PGRepository implements Repository backed by PostgreSQL. Signing keys are
// sealed before insert and only opened by SecretKey.
type PGRepository struct {
	pool   *pgxpool.Pool
	keybox *Keybox
}

// NewRepository creates a PostgreSQL-backed treasury repository.
func NewRepository(pool *pgxpool.Pool, keybox *Keybox) *PGRepository {
	return &PGRepository{pool: pool, keybox: keybox}
}

// Create seals the signing key and inserts a new treasury.
func (r *PGRepository) Create(ctx context.Context, address, secretKeyHex string) (Treasury, error) {
	if address == "" {
		return Treasury{}, fmt.Errorf("treasury: missing address")
	}
	if secretKeyHex == "" {
		return Treasury{}, fmt.Errorf("treasury: missing secret key")
	}

	sealed, err := r.keybox.Seal([]byte(secretKeyHex))
	if err != nil {
		return Treasury{}, err
	}

	const insertSQL = `
		INSERT INTO treasuries (address, secret_key)
		VALUES ($1, $2)
		RETURNING id, address, created_at
	`

	var tr Treasury
	err = r.pool.QueryRow(ctx, insertSQL, address, sealed).
		Scan(&tr.ID, &tr.Address, &tr.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Treasury{}, ErrDuplicateAddress
		}
		return Treasury{}, fmt.Errorf("treasury: create: %w", err)
	}

	return tr, nil
}

// GetByAddress retrieves a treasury by its public chain address.
func (r *PGRepository) GetByAddress(ctx context.Context, address string) (Treasury, error) {
	const selectSQL = `
		SELECT id, address, created_at
		FROM treasuries
		WHERE address = $1
	`

	var tr Treasury
	err := r.pool.QueryRow(ctx, selectSQL, address).
		Scan(&tr.ID, &tr.Address, &tr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Treasury{}, ErrNotFound
		}
		return Treasury{}, fmt.Errorf("treasury: get by address: %w", err)
	}

	return tr, nil
}

// SecretKey opens and returns the hex signing key for a treasury. Callers
// must not retain the key beyond the dispatch call.
func (r *PGRepository) SecretKey(ctx context.Context, treasuryID string) (string, error) {
	const selectSQL = `SELECT secret_key FROM treasuries WHERE id = $1`

	var sealed []byte
	if err := r.pool.QueryRow(ctx, selectSQL, treasuryID).Scan(&sealed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("treasury: get secret key: %w", err)
	}

	plaintext, err := r.keybox.Open(sealed)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
