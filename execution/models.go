package execution

import "time"

// Status represents the lifecycle of an execution. Transitions are monotonic:
// pending → running → {success, failed}; nothing ever moves backward.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Execution mirrors the executions table: one attempt to carry out an
// approved proposal's real-world action. Exactly one of Result/Error is set
// once the status is terminal; neither is set before.
type Execution struct {
	ID                string
	OnChainProposalID string
	Title             string
	Description       string
	TreasuryID        string
	Status            Status
	Result            map[string]any
	Error             *string
	CreatedAt         time.Time
}
