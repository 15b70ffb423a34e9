package sync

import (
	"time"

	"github.com/google/uuid"
)

// SyncContext accumulates the outcome of one sync run. It is a value
// type with copy-on-update semantics: every fold returns a new context
// and never mutates the receiver, so a mid-run snapshot is always safe
// to hand to another reader.
type SyncContext struct {
	ConnectionID     string      `json:"connection_id"`
	MappingID        string      `json:"mapping_id"`
	SyncType         string      `json:"sync_type"`
	RecordsProcessed int         `json:"records_processed"`
	RecordsCreated   int         `json:"records_created"`
	RecordsUpdated   int         `json:"records_updated"`
	RecordsFailed    int         `json:"records_failed"`
	Errors           []SyncError `json:"errors,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
}

// NewSyncContext opens the accumulator for one run.
func NewSyncContext(connectionID, mappingID, syncType string) SyncContext {
	return SyncContext{
		ConnectionID: connectionID,
		MappingID:    mappingID,
		SyncType:     syncType,
		StartedAt:    time.Now(),
	}
}

// RecordCreate folds one successful create.
func (c SyncContext) RecordCreate() SyncContext {
	c.RecordsProcessed++
	c.RecordsCreated++
	return c
}

// RecordUpdate folds one successful update.
func (c SyncContext) RecordUpdate() SyncContext {
	c.RecordsProcessed++
	c.RecordsUpdated++
	return c
}

// RecordFailure folds one failed record and appends its error entry.
// The error slice is copied, not shared, so earlier snapshots stay
// untouched.
func (c SyncContext) RecordFailure(recordID, errorCode, message string) SyncContext {
	c.RecordsProcessed++
	c.RecordsFailed++

	errs := make([]SyncError, len(c.Errors), len(c.Errors)+1)
	copy(errs, c.Errors)
	c.Errors = append(errs, SyncError{
		RecordID:  recordID,
		ErrorCode: errorCode,
		Message:   message,
	})
	return c
}

// Fold folds a single record result.
func (c SyncContext) Fold(r RecordSyncResult) SyncContext {
	if !r.Success {
		return c.RecordFailure(r.LocalID, r.ErrorCode, r.Error)
	}
	if r.Operation == "create" {
		return c.RecordCreate()
	}
	return c.RecordUpdate()
}

// Absorb folds a whole result list. Counts are identical to folding
// each result individually, in any order.
func (c SyncContext) Absorb(results []RecordSyncResult) SyncContext {
	for _, r := range results {
		c = c.Fold(r)
	}
	return c
}

// Status derives the terminal status from the final counts:
// completed when nothing failed (including the zero-record run),
// failed when every processed record failed, partial otherwise.
func (c SyncContext) Status() string {
	switch {
	case c.RecordsFailed == 0:
		return StatusCompleted
	case c.RecordsFailed == c.RecordsProcessed && c.RecordsProcessed > 0:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// SyncResult is the terminal summary a finalized context collapses
// into; the context itself is discarded afterwards.
type SyncResult struct {
	ID               string      `json:"id"`
	Status           string      `json:"status"`
	SyncType         string      `json:"sync_type"`
	RecordsProcessed int         `json:"records_processed"`
	RecordsCreated   int         `json:"records_created"`
	RecordsUpdated   int         `json:"records_updated"`
	RecordsFailed    int         `json:"records_failed"`
	Errors           []SyncError `json:"errors,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
	CompletedAt      time.Time   `json:"completed_at"`
}

// Finalize closes the run and derives its terminal status.
func (c SyncContext) Finalize() SyncResult {
	return SyncResult{
		ID:               uuid.NewString(),
		Status:           c.Status(),
		SyncType:         c.SyncType,
		RecordsProcessed: c.RecordsProcessed,
		RecordsCreated:   c.RecordsCreated,
		RecordsUpdated:   c.RecordsUpdated,
		RecordsFailed:    c.RecordsFailed,
		Errors:           c.Errors,
		StartedAt:        c.StartedAt,
		CompletedAt:      time.Now(),
	}
}
