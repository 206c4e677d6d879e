package migrationapp

import (
	"errors"
	"time"
)

// Stage names, in execution order
const (
	StageReferences      = "references"
	StageHostings        = "hostings"
	StageImages          = "images"
	StageTariffs         = "tariffs"
	StageTariffRelations = "tariff_relations"
	StageContentBlocks   = "content_blocks"
)

// StageOrder lists the stages in the order they run
var StageOrder = []string{
	StageReferences,
	StageHostings,
	StageImages,
	StageTariffs,
	StageTariffRelations,
	StageContentBlocks,
}

// Row error codes beyond the mapping codes
const (
	ErrCodeMissingMapping = "MISSING_MAPPING"
	ErrCodeWriteFailed    = "WRITE_FAILED"
	ErrCodeImageFailed    = "IMAGE_FAILED"
	ErrCodeThumbnail      = "THUMBNAIL_FAILED"
)

// RunStatus is the final state of a run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Counters holds the row counters of one entity kind.
// Created counts real or simulated inserts only; matched rows count as Reused.
type Counters struct {
	Read         int `json:"read"`
	Created      int `json:"created"`
	Reused       int `json:"reused"`
	Updated      int `json:"updated"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	Placeholders int `json:"placeholders,omitempty"`
}

// RowError is a row-level failure recorded in the run report
type RowError struct {
	Stage   string `json:"stage"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Result is the report of one run
type Result struct {
	RunID      string                          `json:"run_id"`
	StartedAt  time.Time                       `json:"started_at"`
	FinishedAt time.Time                       `json:"finished_at"`
	DryRun     bool                            `json:"dry_run"`
	SkipImages bool                            `json:"skip_images"`
	Status     RunStatus                       `json:"status"`
	FatalError string                          `json:"fatal_error,omitempty"`
	Stats      map[string]*Counters            `json:"stats"`
	Mappings   map[EntityKind]map[int64]string `json:"mappings"`
	Errors     []RowError                      `json:"errors"`
}

// NewResult starts the report of a run
func NewResult(runID string, startedAt time.Time, opts Options) *Result {
	return &Result{
		RunID:      runID,
		StartedAt:  startedAt,
		DryRun:     opts.DryRun,
		SkipImages: opts.SkipImages,
		Status:     RunStatusRunning,
		Stats:      make(map[string]*Counters),
		Mappings:   make(map[EntityKind]map[int64]string),
		Errors:     []RowError{},
	}
}

// Counter returns the counters of name, creating them on first use
func (r *Result) Counter(name string) *Counters {
	c, ok := r.Stats[name]
	if !ok {
		c = &Counters{}
		r.Stats[name] = c
	}
	return c
}

// AddError appends a row-level error. The code of a MappingError is carried over.
func (r *Result) AddError(stage, subject string, err error, code string) {
	var mErr *MappingError
	if errors.As(err, &mErr) {
		code = mErr.Code
	}
	r.Errors = append(r.Errors, RowError{
		Stage:   stage,
		Subject: subject,
		Message: err.Error(),
		Code:    code,
	})
}

// ErrorsForStage returns the row errors recorded by stage
func (r *Result) ErrorsForStage(stage string) []RowError {
	var out []RowError
	for _, e := range r.Errors {
		if e.Stage == stage {
			out = append(out, e)
		}
	}
	return out
}

// Finish closes the report with the registry snapshot and the run outcome
func (r *Result) Finish(finishedAt time.Time, registry *Registry, fatal error) {
	r.FinishedAt = finishedAt
	if registry != nil {
		r.Mappings = registry.Snapshot()
	}
	if fatal != nil {
		r.Status = RunStatusFailed
		r.FatalError = fatal.Error()
		return
	}
	r.Status = RunStatusCompleted
}

// Duration returns how long the run took
func (r *Result) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
