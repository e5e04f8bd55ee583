package dto

import "time"

// DispatchStatus is the final state of one definition in one invocation.
type DispatchStatus string

const (
	StatusSkippedInvalid         DispatchStatus = "skipped-invalid"
	StatusSkippedNoCadence       DispatchStatus = "skipped-no-cadence"
	StatusSkippedCadenceMismatch DispatchStatus = "skipped-cadence-mismatch"
	StatusSkippedNoRecipients    DispatchStatus = "skipped-no-recipients"
	StatusSkippedAlreadySent     DispatchStatus = "skipped-already-sent"
	StatusGenerationFailed       DispatchStatus = "generation-failed"
	StatusScheduleFailed         DispatchStatus = "schedule-failed"
	StatusDispatched             DispatchStatus = "dispatched"
)

// IsSkipped reports whether the definition was left untouched on purpose.
func (s DispatchStatus) IsSkipped() bool {
	switch s {
	case StatusSkippedInvalid, StatusSkippedNoCadence, StatusSkippedCadenceMismatch,
		StatusSkippedNoRecipients, StatusSkippedAlreadySent:
		return true
	}
	return false
}

// DispatchCommand is the input of the control entry point.
type DispatchCommand struct {
	Cadence string `json:"cadence"`
	Force   bool   `json:"force"`
}

// DispatchOutcome is the result for one definition.
type DispatchOutcome struct {
	ID           string         `json:"id"`
	Outcome      DispatchStatus `json:"outcome"`
	PeriodLabel  string         `json:"period_label,omitempty"`
	ArtifactPath string         `json:"artifact_path,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// DispatchResult is the result of one invocation.
type DispatchResult struct {
	RunID      string            `json:"run_id"`
	Cadence    string            `json:"cadence"`
	Force      bool              `json:"force"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Outcomes   []DispatchOutcome `json:"outcomes"`
}

// Count returns the number of outcomes with status s.
func (r *DispatchResult) Count(s DispatchStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Outcome == s {
			n++
		}
	}
	return n
}

// DispatchEvent is published for every outcome.
type DispatchEvent struct {
	RunID        string    `json:"run_id"`
	DefinitionID string    `json:"definition_id"`
	Cadence      string    `json:"cadence"`
	Outcome      string    `json:"outcome"`
	PeriodLabel  string    `json:"period_label,omitempty"`
	ArtifactPath string    `json:"artifact_path,omitempty"`
	Error        string    `json:"error,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// GenerateReportResult is returned by manual generation.
type GenerateReportResult struct {
	ArtifactPath string `json:"artifact_path"`
	ArtifactName string `json:"artifact_name"`
	ArchiveURL   string `json:"archive_url,omitempty"`
	PeriodLabel  string `json:"period_label"`
	Scheduled    bool   `json:"delivery_scheduled"`
}

// DefinitionSummaryDTO lists a stored definition and its dispatch state.
type DefinitionSummaryDTO struct {
	ID              string     `json:"id"`
	Hostgroup       string     `json:"hostgroup"`
	Cadence         string     `json:"cadence"`
	Recipients      int        `json:"recipients"`
	Graphs          int        `json:"graphs"`
	LastPeriodLabel string     `json:"last_period_label,omitempty"`
	LastSent        *time.Time `json:"last_sent,omitempty"`
	Error           string     `json:"error,omitempty"`
}
