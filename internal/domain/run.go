package domain

import "time"

// SyncMode selects which engines run for each repository.
type SyncMode string

const (
	ModeMirror SyncMode = "mirror"
	ModeBackup SyncMode = "backup"
	ModeBoth   SyncMode = "both"
)

// IncludesMirror reports whether the mode dispatches repositories to the
// mirror engine.
func (m SyncMode) IncludesMirror() bool {
	return m == ModeMirror || m == ModeBoth
}

// IncludesBackup reports whether the mode dispatches repositories to the
// local backup engine.
func (m SyncMode) IncludesBackup() bool {
	return m == ModeBackup || m == ModeBoth
}

// Valid reports whether the mode is one of the three known modes.
func (m SyncMode) Valid() bool {
	return m == ModeMirror || m == ModeBackup || m == ModeBoth
}

// OutcomeStatus classifies the result of processing one repository.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailed  OutcomeStatus = "failed"
	// OutcomeSkipped marks an empty repository (zero refs); it is excluded
	// from both engines and from the processed count.
	OutcomeSkipped OutcomeStatus = "skipped"
)

// RepoOutcome records what happened to one repository during a run.
type RepoOutcome struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Repo      string        `json:"repo"`
	Mirrored  bool          `json:"mirrored"`
	BackedUp  bool          `json:"backed_up"`
	Status    OutcomeStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// SyncRun is the persisted history record of one sync run.
type SyncRun struct {
	ID         string    `json:"id"`
	Mode       SyncMode  `json:"mode"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Succeeded  int       `json:"succeeded"`
}

// RunResult aggregates counts across all repositories in one run.
type RunResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
}

// SyncStatus is the derived view served by the status command and API.
type SyncStatus struct {
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	GateOpen       bool       `json:"gate_open"`
	NextEligibleAt *time.Time `json:"next_eligible_at,omitempty"`
}
