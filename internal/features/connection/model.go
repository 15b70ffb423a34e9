package connection

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IntegrationConnection holds the credentials and target coordinates of
// one external partner system (accounting, ERP, external database).
type IntegrationConnection struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Provider     string             `json:"provider" bson:"provider"`
	Type         string             `json:"type" bson:"type"` // "rest", "postgres", "mysql"
	BaseURL      string             `json:"base_url,omitempty" bson:"base_url,omitempty"`
	RemoteConfig map[string]string  `json:"remote_config,omitempty" bson:"remote_config,omitempty"`
	AccessToken  string             `json:"access_token,omitempty" bson:"access_token,omitempty"`
	RefreshToken string             `json:"refresh_token,omitempty" bson:"refresh_token,omitempty"`
	TokenExpiry  *time.Time         `json:"token_expiry,omitempty" bson:"token_expiry,omitempty"`
	IsActive     bool               `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

// TokenStatus is derived from a connection's stored credentials, never
// persisted.
type TokenStatus struct {
	Valid          bool `json:"valid"`
	Expired        bool `json:"expired"`
	RequiresReauth bool `json:"requires_reauth"`
}
