package connection

import (
	"context"
	"fmt"
	"time"

	"go-bms/internal/connectors"
	"go-bms/pkg/retry"

	"go.uber.org/zap"
)

type ConnectionService interface {
	CreateConnection(ctx context.Context, conn *IntegrationConnection) error
	GetConnection(ctx context.Context, id string) (*IntegrationConnection, error)
	ListConnections(ctx context.Context) ([]IntegrationConnection, error)
	UpdateConnection(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteConnection(ctx context.Context, id string) error
	TokenStatus(ctx context.Context, id string) (*TokenStatus, error)
	Refresher(conn *IntegrationConnection, provider connectors.TokenRefresher) retry.RefreshFunc
}

type ConnectionServiceImpl struct {
	Repo   ConnectionRepository
	Logger *zap.Logger
}

func NewConnectionService(repo ConnectionRepository, logger *zap.Logger) ConnectionService {
	return &ConnectionServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

var validTypes = map[string]bool{"rest": true, "postgres": true, "mysql": true}

func (s *ConnectionServiceImpl) CreateConnection(ctx context.Context, conn *IntegrationConnection) error {
	if conn.Name == "" {
		return fmt.Errorf("connection name is required")
	}
	if !validTypes[conn.Type] {
		return fmt.Errorf("unsupported connection type: %s", conn.Type)
	}
	if conn.Type == "rest" && conn.BaseURL == "" {
		return fmt.Errorf("base_url is required for rest connections")
	}
	return s.Repo.Create(ctx, conn)
}

func (s *ConnectionServiceImpl) GetConnection(ctx context.Context, id string) (*IntegrationConnection, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ConnectionServiceImpl) ListConnections(ctx context.Context) ([]IntegrationConnection, error) {
	return s.Repo.List(ctx)
}

func (s *ConnectionServiceImpl) UpdateConnection(ctx context.Context, id string, updates map[string]interface{}) error {
	return s.Repo.Update(ctx, id, updates)
}

func (s *ConnectionServiceImpl) DeleteConnection(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *ConnectionServiceImpl) TokenStatus(ctx context.Context, id string) (*TokenStatus, error) {
	conn, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status := conn.Status(time.Now())
	return &status, nil
}

// Refresher builds the one-shot refresh function bound to this
// connection. It returns nil when no refresh token exists, which tells
// callers to route the user through interactive reauthorization.
// On success the rotated credentials are applied to conn in place (so
// the running batch picks them up) and persisted.
func (s *ConnectionServiceImpl) Refresher(conn *IntegrationConnection, provider connectors.TokenRefresher) retry.RefreshFunc {
	if conn.RefreshToken == "" || provider == nil {
		return nil
	}

	return func(ctx context.Context) error {
		refreshed, err := provider.RefreshToken(ctx, conn.RefreshToken)
		if err != nil {
			s.Logger.Warn("token refresh failed",
				zap.String("connection_id", conn.ID.Hex()),
				zap.Error(err),
			)
			return err
		}

		conn.AccessToken = refreshed.AccessToken
		if refreshed.RefreshToken != "" {
			conn.RefreshToken = refreshed.RefreshToken
		}
		conn.TokenExpiry = refreshed.ExpiresAt

		updates := map[string]interface{}{
			"access_token":  conn.AccessToken,
			"refresh_token": conn.RefreshToken,
			"token_expiry":  conn.TokenExpiry,
		}
		if err := s.Repo.Update(ctx, conn.ID.Hex(), updates); err != nil {
			// The in-memory token is already rotated; persisting again on
			// the next refresh is preferable to failing the whole run.
			s.Logger.Warn("failed to persist refreshed token",
				zap.String("connection_id", conn.ID.Hex()),
				zap.Error(err),
			)
		}

		s.Logger.Info("connection token refreshed",
			zap.String("connection_id", conn.ID.Hex()),
		)
		return nil
	}
}
