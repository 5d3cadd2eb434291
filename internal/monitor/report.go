package monitor

import "time"

// FailureScope identifies which level of the pipeline a failure was isolated to.
type FailureScope string

const (
	// ScopeAccount covers fetch failures; the whole account is skipped.
	ScopeAccount FailureScope = "account"
	// ScopeItem covers download and archive failures; the item is retried
	// on the next run because it was never marked processed.
	ScopeItem FailureScope = "item"
	// ScopeNotify covers notify failures after the ledger write; the item
	// stays processed and the alert is lost.
	ScopeNotify FailureScope = "notify"
)

// Failure is one isolated, non-fatal error collected during a run.
type Failure struct {
	Scope   FailureScope `json:"scope"`
	Account string       `json:"account"`
	PostID  string       `json:"post_id,omitempty"`
	Err     string       `json:"error"`
}

// RunReport summarises one full execution of the pipeline.
type RunReport struct {
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Accounts       int           `json:"accounts"`
	PostsFetched   int           `json:"posts_fetched"`
	NewlyProcessed int           `json:"newly_processed"`
	Failures       []Failure     `json:"failures"`
	Duration       time.Duration `json:"duration"`
}

func (r *RunReport) addFailure(scope FailureScope, account, postID string, err error) {
	r.Failures = append(r.Failures, Failure{
		Scope:   scope,
		Account: account,
		PostID:  postID,
		Err:     err.Error(),
	})
}
