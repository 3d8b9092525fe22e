package execution

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"treasuryflow/browser"
	"treasuryflow/payment"
	"treasuryflow/playbook"
	"treasuryflow/treasury"
)

// defaultMaxSessions bounds how many browser instances may be open at once
// across all in-flight executions.
const defaultMaxSessions = 4

// Session is the slice of a browser session the orchestrator needs.
type Session interface {
	Page() playbook.Page
	Context() context.Context
	TimedOut() bool
	Release()
}

// Sessions produces one disposable browser session per execution.
type Sessions interface {
	Acquire(ctx context.Context) (Session, error)
}

// PlaybookRunner executes a playbook's steps against a page.
// playbook.Interpreter is the production implementation.
type PlaybookRunner interface {
	Run(ctx context.Context, page playbook.Page, pb playbook.Playbook, vars map[string]string) error
}

// TreasuryStore is the slice of the treasury repository the orchestrator
// consumes.
type TreasuryStore interface {
	GetByAddress(ctx context.Context, address string) (treasury.Treasury, error)
	SecretKey(ctx context.Context, treasuryID string) (string, error)
}

// Service is the execution orchestrator: it creates pending records, drives
// the browser session step by step, dispatches payment, and records the
// terminal outcome. Failures inside the detached run are only ever written
// to the execution row, never returned to Launch's caller.
type Service struct {
	repo        Repository
	treasuries  TreasuryStore
	sessions    Sessions
	dispatcher  payment.Dispatcher
	runner      PlaybookRunner
	catalog     *playbook.Catalog
	sem         *semaphore.Weighted
	idGenerator func() string
}

// LaunchParams carries a proposal-execution request.
type LaunchParams struct {
	OnChainProposalID string
	Title             string
	Description       string
	TreasuryAddress   string
}

// NewService creates an orchestrator.
func NewService(repo Repository, treasuries TreasuryStore, sessions Sessions, dispatcher payment.Dispatcher, runner PlaybookRunner, catalog *playbook.Catalog) *Service {
	return &Service{
		repo:        repo,
		treasuries:  treasuries,
		sessions:    sessions,
		dispatcher:  dispatcher,
		runner:      runner,
		catalog:     catalog,
		sem:         semaphore.NewWeighted(defaultMaxSessions),
		idGenerator: func() string { return uuid.NewString() },
	}
}

// WithIDGenerator overrides execution id generation, for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// WithMaxSessions overrides the concurrent browser session bound.
func (s *Service) WithMaxSessions(n int64) *Service {
	s.sem = semaphore.NewWeighted(n)
	return s
}

// Launch resolves the treasury, creates a pending execution row, and
// detaches the run. It returns immediately; the background task's outcome
// is observable only by polling GetExecution.
func (s *Service) Launch(ctx context.Context, params LaunchParams) (Execution, error) {
	if params.OnChainProposalID == "" {
		return Execution{}, fmt.Errorf("execution: missing on-chain proposal id")
	}
	if params.TreasuryAddress == "" {
		return Execution{}, fmt.Errorf("execution: missing treasury address")
	}

	tr, err := s.treasuries.GetByAddress(ctx, params.TreasuryAddress)
	if err != nil {
		return Execution{}, err
	}

	created, err := s.repo.Create(ctx, Execution{
		ID:                s.idGenerator(),
		OnChainProposalID: params.OnChainProposalID,
		Title:             params.Title,
		Description:       params.Description,
		TreasuryID:        tr.ID,
	})
	if err != nil {
		return Execution{}, err
	}

	go s.runDetached(created)

	return created, nil
}

// GetExecution returns the execution recorded for the proposal.
func (s *Service) GetExecution(ctx context.Context, onChainProposalID string) (Execution, error) {
	return s.repo.GetByProposalID(ctx, onChainProposalID)
}

// runDetached runs the execution on a background context and records any
// failure on the row. Nothing escapes to the goroutine's spawner.
func (s *Service) runDetached(exec Execution) {
	ctx := context.Background()
	if err := s.run(ctx, exec); err != nil {
		_ = s.repo.MarkFailed(ctx, exec.ID, err.Error())
	}
}

// run drives one execution to a terminal state. No step is ever retried: a
// partial retry against a live payment flow risks a double spend, so the
// first failure ends the attempt.
func (s *Service) run(ctx context.Context, exec Execution) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("execution: acquire session slot: %w", err)
	}
	defer s.sem.Release(1)

	if err := s.repo.MarkRunning(ctx, exec.ID); err != nil {
		return err
	}

	pb, err := s.catalog.Match(exec.Title, exec.Description)
	if err != nil {
		return err
	}

	amount, ok := playbook.ExtractAmount(exec.Title + " " + exec.Description)
	if !ok {
		return fmt.Errorf("execution: proposal text names no ETH amount")
	}

	session, err := s.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer session.Release()

	vars := map[string]string{
		"title":       exec.Title,
		"description": exec.Description,
		"amount":      amount,
		"recipient":   exec.Title,
	}

	if err := s.runner.Run(session.Context(), session.Page(), pb, vars); err != nil {
		if session.TimedOut() {
			return fmt.Errorf("%w: %v", browser.ErrDeadline, err)
		}
		return err
	}

	address := vars["address"]
	if address == "" {
		return fmt.Errorf("execution: playbook %q resolved no payment address", pb.Name)
	}

	// The browser is no longer needed; free it before waiting on chain
	// confirmation.
	session.Release()

	amountWei, err := payment.EthToWei(amount)
	if err != nil {
		return err
	}

	// The signing key lives only for the duration of the dispatch call.
	secretKey, err := s.treasuries.SecretKey(ctx, exec.TreasuryID)
	if err != nil {
		return err
	}
	txHash, err := s.dispatcher.Send(ctx, secretKey, address, amountWei)
	if err != nil {
		return err
	}

	return s.repo.MarkSucceeded(ctx, exec.ID, map[string]any{
		"tx_hash":    txHash,
		"address":    address,
		"amount_wei": amountWei.String(),
	})
}
