package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"treasuryflow/execution"
	"treasuryflow/treasury"
)

// executionService is the slice of the orchestrator the HTTP surface needs.
type executionService interface {
	Launch(ctx context.Context, params execution.LaunchParams) (execution.Execution, error)
	GetExecution(ctx context.Context, onChainProposalID string) (execution.Execution, error)
}

type apiServer struct {
	executions executionService
}

func (s *apiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/executions", s.handleLaunch)
	mux.HandleFunc("/executions/", s.handleExecution)
	return mux
}

type launchRequest struct {
	OnChainProposalID string `json:"on_chain_proposal_id"`
	Title             string `json:"title"`
	Description       string `json:"description"`
	TreasuryAddress   string `json:"treasury_address"`
}

type executionResponse struct {
	CreatedAt   time.Time      `json:"created_at"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Result      map[string]any `json:"result,omitempty"`
	Error       *string        `json:"error,omitempty"`
}

// handleLaunch creates a pending execution and detaches its run. The
// response never waits for the run: callers poll.
func (s *apiServer) handleLaunch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	created, err := s.executions.Launch(r.Context(), execution.LaunchParams{
		OnChainProposalID: req.OnChainProposalID,
		Title:             req.Title,
		Description:       req.Description,
		TreasuryAddress:   req.TreasuryAddress,
	})
	switch {
	case errors.Is(err, treasury.ErrNotFound):
		http.Error(w, "treasury not found", http.StatusNotFound)
		return
	case errors.Is(err, execution.ErrConflict):
		http.Error(w, "proposal already has an execution", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, "launch failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"on_chain_proposal_id": created.OnChainProposalID,
		"status":               string(created.Status),
	})
}

// handleExecution returns the recorded state of one execution.
func (s *apiServer) handleExecution(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pid := strings.TrimPrefix(r.URL.Path, "/executions/")
	if pid == "" || strings.Contains(pid, "/") {
		http.Error(w, "invalid path", http.StatusNotFound)
		return
	}

	exec, err := s.executions.GetExecution(r.Context(), pid)
	if errors.Is(err, execution.ErrNotFound) {
		http.Error(w, "execution not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(executionResponse{
		CreatedAt:   exec.CreatedAt,
		Title:       exec.Title,
		Description: exec.Description,
		Status:      string(exec.Status),
		Result:      exec.Result,
		Error:       exec.Error,
	})
}
