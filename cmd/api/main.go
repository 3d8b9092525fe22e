package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"treasuryflow/assist"
	"treasuryflow/browser"
	"treasuryflow/db"
	"treasuryflow/execution"
	"treasuryflow/ocr"
	"treasuryflow/payment"
	"treasuryflow/playbook"
	"treasuryflow/treasury"
)

func main() {
	ctx := context.Background()

	pool, err := db.NewPool(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	keybox, err := treasury.NewKeybox(os.Getenv("TREASURY_SEAL_KEY"))
	if err != nil {
		log.Fatalf("bootstrap keybox: %v", err)
	}

	budget := envDuration("SESSION_BUDGET_MS", 2*time.Minute)
	headful := os.Getenv("BROWSER_HEADFUL") == "1"

	treasuries := treasury.NewRepository(pool, keybox)
	executions := execution.NewRepository(pool)
	sessions := browser.NewManager(budget, headful)
	dispatcher := payment.NewChainDispatcher(os.Getenv("CHAIN_RPC_URL"), 2*time.Minute)
	interact := assist.NewClient(os.Getenv("ASSIST_URL"))
	interpreter := playbook.NewInterpreter(interact, ocr.NewExtractor())

	orchestrator := execution.NewService(
		executions, treasuries, sessionSource{m: sessions},
		dispatcher, interpreter, playbook.Default(),
	)

	server := &apiServer{executions: orchestrator}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("proposal execution engine listening on %s (session budget %s)", addr, budget)
	log.Fatal(http.ListenAndServe(addr, server.routes()))
}

// sessionSource adapts the concrete browser manager to the orchestrator's
// session interface.
type sessionSource struct {
	m *browser.Manager
}

func (s sessionSource) Acquire(ctx context.Context) (execution.Session, error) {
	sess, err := s.m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		log.Fatalf("bad %s: %q", name, raw)
	}
	return time.Duration(ms) * time.Millisecond
}
