package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RecordOutcome is the per-record result reported by an external adapter.
type RecordOutcome struct {
	Success    bool   `json:"success"`
	ExternalID string `json:"external_id,omitempty"`
}

// RefreshedToken carries rotated credentials returned by a token refresh.
type RefreshedToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// AdapterError is a remote failure tagged with the flat error-code
// vocabulary exchanged with adapters (NETWORK_ERROR, RATE_LIMITED,
// UNAUTHORIZED, VALIDATION_ERROR, ...).
type AdapterError struct {
	Code    string
	Message string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode extracts the adapter error code from err, or "" when err is
// not an adapter failure.
func ErrorCode(err error) string {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// ExternalAdapter is the capability set through which records are
// created and updated on the partner system. Production connectors and
// test doubles both implement it.
type ExternalAdapter interface {
	// CreateRecord creates a new remote record from the mapped payload.
	CreateRecord(ctx context.Context, payload map[string]interface{}) (*RecordOutcome, error)

	// UpdateRecord updates the remote record identified by externalID.
	UpdateRecord(ctx context.Context, externalID string, payload map[string]interface{}) (*RecordOutcome, error)
}

// RecordLister is the optional pull-side capability. Adapters that
// cannot enumerate remote records simply don't implement it.
type RecordLister interface {
	ListRecords(ctx context.Context, updatedSince time.Time, limit int) ([]map[string]interface{}, error)
}

// TokenRefresher is the optional credential-rotation capability.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*RefreshedToken, error)
}

// AdapterConfig describes the external target an adapter talks to.
// AccessToken is a supplier rather than a value so that a mid-batch
// token refresh takes effect on the next attempt.
type AdapterConfig struct {
	Type        string // "rest", "postgres", "mysql"
	BaseURL     string
	Entity      string // remote entity name / table name
	AccessToken func() string
	DB          map[string]string // SQL connection parameters
}

// NewAdapter builds the adapter for a connection type.
func NewAdapter(cfg AdapterConfig) (ExternalAdapter, error) {
	switch cfg.Type {
	case "rest":
		return NewRESTConnector(cfg), nil
	case "postgres", "mysql":
		return NewSQLConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported connection type: %s", cfg.Type)
	}
}
