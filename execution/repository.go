package execution

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound signals that no execution matches the on-chain proposal id.
	ErrNotFound = errors.New("execution: not found")
	// ErrConflict signals that an execution already exists for the proposal.
	ErrConflict = errors.New("execution: proposal already has an execution")
	// ErrBadStatus signals a transition that would move the status backward.
	ErrBadStatus = errors.New("execution: invalid status transition")
)

// Repository handles data access for execution records.
type Repository interface {
	Create(ctx context.Context, exec Execution) (Execution, error)
	GetByProposalID(ctx context.Context, onChainProposalID string) (Execution, error)
	MarkRunning(ctx context.Context, id string) error
	MarkSucceeded(ctx context.Context, id string, result map[string]any) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

// PGRepository implements Repository backed by PostgreSQL. Status monotonicity
// is enforced by guarded UPDATEs, so a late writer can never undo a terminal
// state.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed execution repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a new pending execution.
func (r *PGRepository) Create(ctx context.Context, exec Execution) (Execution, error) {
	const insertSQL = `
		INSERT INTO executions (id, on_chain_proposal_id, title, description, treasury_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, on_chain_proposal_id, title, description, treasury_id, status::text, result, error, created_at
	`

	created, err := scanExecution(r.pool.QueryRow(ctx, insertSQL,
		exec.ID, exec.OnChainProposalID, exec.Title, exec.Description, exec.TreasuryID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Execution{}, ErrConflict
		}
		return Execution{}, fmt.Errorf("execution: create: %w", err)
	}

	return created, nil
}

// GetByProposalID retrieves an execution by its external correlation key.
func (r *PGRepository) GetByProposalID(ctx context.Context, onChainProposalID string) (Execution, error) {
	const selectSQL = `
		SELECT id, on_chain_proposal_id, title, description, treasury_id, status::text, result, error, created_at
		FROM executions
		WHERE on_chain_proposal_id = $1
	`

	exec, err := scanExecution(r.pool.QueryRow(ctx, selectSQL, onChainProposalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Execution{}, ErrNotFound
		}
		return Execution{}, fmt.Errorf("execution: get by proposal id: %w", err)
	}

	return exec, nil
}

// MarkRunning transitions pending → running.
func (r *PGRepository) MarkRunning(ctx context.Context, id string) error {
	const updateSQL = `
		UPDATE executions SET status = 'running'
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.pool.Exec(ctx, updateSQL, id)
	if err != nil {
		return fmt.Errorf("execution: mark running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBadStatus
	}
	return nil
}

// MarkSucceeded transitions running → success and stores the result payload.
func (r *PGRepository) MarkSucceeded(ctx context.Context, id string, result map[string]any) error {
	const updateSQL = `
		UPDATE executions SET status = 'success', result = $2
		WHERE id = $1 AND status = 'running'
	`

	tag, err := r.pool.Exec(ctx, updateSQL, id, result)
	if err != nil {
		return fmt.Errorf("execution: mark succeeded: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBadStatus
	}
	return nil
}

// MarkFailed transitions any non-terminal status → failed and stores the
// error description.
func (r *PGRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	const updateSQL = `
		UPDATE executions SET status = 'failed', error = $2
		WHERE id = $1 AND status IN ('pending', 'running')
	`

	tag, err := r.pool.Exec(ctx, updateSQL, id, errMsg)
	if err != nil {
		return fmt.Errorf("execution: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBadStatus
	}
	return nil
}

func scanExecution(row pgx.Row) (Execution, error) {
	var (
		exec   Execution
		result map[string]any
		errMsg *string
	)
	err := row.Scan(
		&exec.ID,
		&exec.OnChainProposalID,
		&exec.Title,
		&exec.Description,
		&exec.TreasuryID,
		&exec.Status,
		&result,
		&errMsg,
		&exec.CreatedAt,
	)
	if err != nil {
		return Execution{}, err
	}

	exec.Result = result
	exec.Error = errMsg
	return exec, nil
}
