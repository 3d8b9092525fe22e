package treasury

import "time"

// Treasury is the domain representation of one custodial wallet funding
// executions. The signing key is stored sealed and is deliberately absent
// here; it is only reachable through Repository.SecretKey at dispatch time.
type Treasury struct {
	ID        string
	Address   string
	CreatedAt time.Time
}
