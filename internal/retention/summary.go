package retention

import (
	"encoding/json"
	"math"
	"time"
)

// Status is the terminal state of a cleanup run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// maxReportedFailures bounds the failed tenant ids carried in the JSON form.
const maxReportedFailures = 10

// RunSummary is the result of one cleanup run. It is built once, at the end
// of the run, and never mutated afterwards.
type RunSummary struct {
	Status               Status
	TenantsProcessed     int
	TenantsWithDeletions int
	TotalDeleted         int
	FailedTenants        []string
	Cutoff               string
	RetentionDays        int
	Duration             time.Duration
	Timestamp            string

	// Err and ErrorType are set only when Status is StatusError.
	Err       error
	ErrorType string
}

// ExecutionSeconds is Duration in seconds rounded to two decimals.
func (s RunSummary) ExecutionSeconds() float64 {
	return math.Round(s.Duration.Seconds()*100) / 100
}

// ReportedFailures returns at most the first ten failed tenant ids.
func (s RunSummary) ReportedFailures() []string {
	if len(s.FailedTenants) > maxReportedFailures {
		return s.FailedTenants[:maxReportedFailures]
	}
	return s.FailedTenants
}

type successJSON struct {
	Status               Status   `json:"status"`
	UsersProcessed       int      `json:"users_processed"`
	UsersWithDeletions   int      `json:"users_with_deletions"`
	TotalDeleted         int      `json:"total_deleted"`
	CutoffDate           string   `json:"cutoff_date"`
	RetentionDays        int      `json:"retention_days"`
	ExecutionTimeSeconds float64  `json:"execution_time_seconds"`
	Timestamp            string   `json:"timestamp"`
	FailedUsersCount     int      `json:"failed_users_count,omitempty"`
	FailedUsers          []string `json:"failed_users,omitempty"`
}

type errorJSON struct {
	Status    Status `json:"status"`
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
	Timestamp string `json:"timestamp"`
}

// MarshalJSON emits the wire shape of the run result. Error runs carry no
// per-tenant fields.
func (s RunSummary) MarshalJSON() ([]byte, error) {
	if s.Status == StatusError {
		msg := ""
		if s.Err != nil {
			msg = s.Err.Error()
		}
		return json.Marshal(errorJSON{
			Status:    s.Status,
			Error:     msg,
			ErrorType: s.ErrorType,
			Timestamp: s.Timestamp,
		})
	}
	out := successJSON{
		Status:               s.Status,
		UsersProcessed:       s.TenantsProcessed,
		UsersWithDeletions:   s.TenantsWithDeletions,
		TotalDeleted:         s.TotalDeleted,
		CutoffDate:           s.Cutoff,
		RetentionDays:        s.RetentionDays,
		ExecutionTimeSeconds: s.ExecutionSeconds(),
		Timestamp:            s.Timestamp,
	}
	if n := len(s.FailedTenants); n > 0 {
		out.FailedUsersCount = n
		out.FailedUsers = s.ReportedFailures()
	}
	return json.Marshal(out)
}

// outcome is the result of cleaning one tenant.
type outcome struct {
	tenant  string
	deleted int
	err     error
}

// failure is a node in a persistent list of failed tenants, newest first.
// Tallies share tails, so recording a failure never copies earlier ones.
type failure struct {
	tenant string
	prev   *failure
}

// tally is the running fold over tenant outcomes. add returns a new value;
// the receiver is never modified.
type tally struct {
	processed     int
	withDeletions int
	deleted       int
	failed        *failure
	failedCount   int
}

func (t tally) add(o outcome) tally {
	next := t
	next.processed++
	if o.err != nil {
		next.failed = &failure{tenant: o.tenant, prev: t.failed}
		next.failedCount++
		return next
	}
	next.deleted += o.deleted
	if o.deleted > 0 {
		next.withDeletions++
	}
	return next
}

// failedTenants returns the failed tenant ids in the order they were added.
func (t tally) failedTenants() []string {
	if t.failedCount == 0 {
		return nil
	}
	out := make([]string, t.failedCount)
	i := t.failedCount - 1
	for f := t.failed; f != nil; f = f.prev {
		out[i] = f.tenant
		i--
	}
	return out
}
