package sync

import (
	"fmt"
	"time"

	"go-bms/pkg/retry"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sync directions.
const (
	DirectionPush          = "push"
	DirectionPull          = "pull"
	DirectionBidirectional = "bidirectional"
)

// Sync frequencies.
const (
	FrequencyRealtime = "realtime"
	FrequencyHourly   = "hourly"
	FrequencyDaily    = "daily"
	FrequencyManual   = "manual"
)

// Transforms applied to a field value before assignment.
const (
	TransformDateFormat     = "date_format"
	TransformCurrencyFormat = "currency_format"
	TransformUppercase      = "uppercase"
	TransformLowercase      = "lowercase"
	TransformCustom         = "custom"
)

// Terminal run statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusPartial    = "partial"
	StatusFailed     = "failed"
)

// FieldMapping is one local-path-to-remote-path translation rule.
// Paths are dot-separated for nested addressing. CustomScript holds the
// caller-side expression evaluated when Transform is "custom".
type FieldMapping struct {
	LocalField   string `json:"local_field" bson:"local_field"`
	RemoteField  string `json:"remote_field" bson:"remote_field"`
	Transform    string `json:"transform,omitempty" bson:"transform,omitempty"`
	CustomScript string `json:"custom_script,omitempty" bson:"custom_script,omitempty"`
}

// FilterCondition restricts which records a mapping applies to.
// Conditions on one mapping are AND-combined.
type FilterCondition struct {
	Field    string      `json:"field" bson:"field"`
	Operator string      `json:"operator" bson:"operator"`
	Value    interface{} `json:"value" bson:"value"`
}

// SyncMapping binds one local collection to one remote entity type.
type SyncMapping struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	ConnectionID    primitive.ObjectID `json:"connection_id" bson:"connection_id"`
	LocalCollection string             `json:"local_collection" bson:"local_collection"`
	RemoteEntity    string             `json:"remote_entity" bson:"remote_entity"`
	FieldMappings   []FieldMapping     `json:"field_mappings" bson:"field_mappings"`
	Direction       string             `json:"direction" bson:"direction"`
	Frequency       string             `json:"frequency" bson:"frequency"`
	Filters         []FilterCondition  `json:"filters,omitempty" bson:"filters,omitempty"`
	Retry           *retry.Config      `json:"retry,omitempty" bson:"retry,omitempty"`
	IsActive        bool               `json:"is_active" bson:"is_active"`
	LastSyncAt      time.Time          `json:"last_sync_at" bson:"last_sync_at"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

var validDirections = map[string]bool{
	DirectionPush:          true,
	DirectionPull:          true,
	DirectionBidirectional: true,
}

var validFrequencies = map[string]bool{
	FrequencyRealtime: true,
	FrequencyHourly:   true,
	FrequencyDaily:    true,
	FrequencyManual:   true,
}

var validTransforms = map[string]bool{
	"":                      true,
	TransformDateFormat:     true,
	TransformCurrencyFormat: true,
	TransformUppercase:      true,
	TransformLowercase:      true,
	TransformCustom:         true,
}

// Validate enforces the mapping invariants: a non-empty field mapping
// list, non-blank field names, and enumerated direction/frequency/
// transform values.
func (m *SyncMapping) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("mapping name is required")
	}
	if m.ConnectionID.IsZero() {
		return fmt.Errorf("connection_id is required")
	}
	if m.LocalCollection == "" || m.RemoteEntity == "" {
		return fmt.Errorf("local_collection and remote_entity are required")
	}
	if len(m.FieldMappings) == 0 {
		return fmt.Errorf("at least one field mapping is required")
	}
	for i, fm := range m.FieldMappings {
		if fm.LocalField == "" || fm.RemoteField == "" {
			return fmt.Errorf("field mapping %d has a blank field name", i)
		}
		if !validTransforms[fm.Transform] {
			return fmt.Errorf("field mapping %d has unknown transform %q", i, fm.Transform)
		}
	}
	if !validDirections[m.Direction] {
		return fmt.Errorf("unknown sync direction %q", m.Direction)
	}
	if !validFrequencies[m.Frequency] {
		return fmt.Errorf("unknown sync frequency %q", m.Frequency)
	}
	return nil
}

// RetryConfig returns the mapping's retry bounds, or the documented
// default when the mapping carries none.
func (m *SyncMapping) RetryConfig() retry.Config {
	if m.Retry != nil {
		return *m.Retry
	}
	return retry.DefaultConfig()
}

// SyncRecord is the opaque envelope handed to the batch processor: the
// local id plus the already-mapped payload.
type SyncRecord struct {
	LocalID string                 `json:"local_id"`
	Data    map[string]interface{} `json:"data"`
}

// RecordSyncResult is the per-record outcome of one batch pass.
type RecordSyncResult struct {
	LocalID        string `json:"local_id"`
	Success        bool   `json:"success"`
	Operation      string `json:"operation"` // "create" | "update"
	ExternalID     string `json:"external_id,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	Retries        int    `json:"retries"`
	TokenRefreshed bool   `json:"token_refreshed"`
}

// SyncError is a structured per-record failure entry.
type SyncError struct {
	RecordID  string `json:"record_id" bson:"record_id"`
	ErrorCode string `json:"error_code" bson:"error_code"`
	Message   string `json:"message" bson:"message"`
}

// SyncRunLog is the persisted trace of one sync run.
type SyncRunLog struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MappingID        primitive.ObjectID `json:"mapping_id" bson:"mapping_id"`
	RunID            string             `json:"run_id" bson:"run_id"`
	SyncType         string             `json:"sync_type" bson:"sync_type"`
	Status           string             `json:"status" bson:"status"`
	StartTime        time.Time          `json:"start_time" bson:"start_time"`
	EndTime          time.Time          `json:"end_time" bson:"end_time"`
	RecordsProcessed int                `json:"records_processed" bson:"records_processed"`
	RecordsCreated   int                `json:"records_created" bson:"records_created"`
	RecordsUpdated   int                `json:"records_updated" bson:"records_updated"`
	RecordsFailed    int                `json:"records_failed" bson:"records_failed"`
	Errors           []SyncError        `json:"errors,omitempty" bson:"errors,omitempty"`
}

// ExternalIDMapping links a local record to the id it carries on the
// partner system. Written after each successful create.
type ExternalIDMapping struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MappingID  primitive.ObjectID `json:"mapping_id" bson:"mapping_id"`
	LocalID    string             `json:"local_id" bson:"local_id"`
	ExternalID string             `json:"external_id" bson:"external_id"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}
