package sync

import (
	"context"
	"fmt"
	"io"
	"time"

	"go-bms/internal/connectors"
	"go-bms/internal/features/connection"
	"go-bms/internal/features/record"
	"go-bms/pkg/retry"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	pushPageSize = 500
	pullPageSize = 500
)

type SyncService interface {
	CreateMapping(ctx context.Context, mapping *SyncMapping) error
	GetMapping(ctx context.Context, id string) (*SyncMapping, error)
	ListMappings(ctx context.Context) ([]SyncMapping, error)
	UpdateMapping(ctx context.Context, id string, updates map[string]interface{}) error
	DeleteMapping(ctx context.Context, id string) error

	RunSync(ctx context.Context, mappingID string) (*SyncResult, error)
	RunDue(ctx context.Context, frequency string)
	ListRunLogs(ctx context.Context, mappingID string, limit int64) ([]SyncRunLog, error)
	ExportRunLogs(ctx context.Context, mappingID string, limit int64) (*excelize.File, error)
}

type SyncServiceImpl struct {
	Mappings    SyncMappingRepository
	RunLogs     SyncRunLogRepository
	ExternalIDs ExternalIDRepository
	Records     record.RecordRepository
	Connections connection.ConnectionService
	Hub         *ProgressHub
	Resolver    CustomResolver
	Logger      *zap.Logger

	// AdapterFactory builds the external adapter for a run; nil means
	// connectors.NewAdapter. Seam for test doubles.
	AdapterFactory func(connectors.AdapterConfig) (connectors.ExternalAdapter, error)
}

func NewSyncService(
	mappings SyncMappingRepository,
	runLogs SyncRunLogRepository,
	externalIDs ExternalIDRepository,
	records record.RecordRepository,
	connections connection.ConnectionService,
	hub *ProgressHub,
	logger *zap.Logger,
) SyncService {
	return &SyncServiceImpl{
		Mappings:    mappings,
		RunLogs:     runLogs,
		ExternalIDs: externalIDs,
		Records:     records,
		Connections: connections,
		Hub:         hub,
		Resolver:    NewTengoResolver(),
		Logger:      logger,
	}
}

func (s *SyncServiceImpl) CreateMapping(ctx context.Context, mapping *SyncMapping) error {
	if err := mapping.Validate(); err != nil {
		return err
	}
	if _, err := s.Connections.GetConnection(ctx, mapping.ConnectionID.Hex()); err != nil {
		return fmt.Errorf("connection %s not found", mapping.ConnectionID.Hex())
	}
	return s.Mappings.Create(ctx, mapping)
}

func (s *SyncServiceImpl) GetMapping(ctx context.Context, id string) (*SyncMapping, error) {
	return s.Mappings.Get(ctx, id)
}

func (s *SyncServiceImpl) ListMappings(ctx context.Context) ([]SyncMapping, error) {
	return s.Mappings.List(ctx)
}

func (s *SyncServiceImpl) UpdateMapping(ctx context.Context, id string, updates map[string]interface{}) error {
	return s.Mappings.Update(ctx, id, updates)
}

func (s *SyncServiceImpl) DeleteMapping(ctx context.Context, id string) error {
	return s.Mappings.Delete(ctx, id)
}

func (s *SyncServiceImpl) ListRunLogs(ctx context.Context, mappingID string, limit int64) ([]SyncRunLog, error) {
	return s.RunLogs.ListByMapping(ctx, mappingID, limit)
}

// RunDue runs every active mapping registered for the frequency.
// Used by the scheduler; per-mapping failures are logged and do not
// stop the sweep.
func (s *SyncServiceImpl) RunDue(ctx context.Context, frequency string) {
	mappings, err := s.Mappings.ListActive(ctx, frequency)
	if err != nil {
		s.Logger.Error("failed to list due sync mappings",
			zap.String("frequency", frequency),
			zap.Error(err),
		)
		return
	}

	for _, m := range mappings {
		if _, err := s.RunSync(ctx, m.ID.Hex()); err != nil {
			s.Logger.Error("scheduled sync run failed",
				zap.String("mapping_id", m.ID.Hex()),
				zap.Error(err),
			)
		}
	}
}

// RunSync executes one full run of a mapping: push, pull, or both.
func (s *SyncServiceImpl) RunSync(ctx context.Context, mappingID string) (*SyncResult, error) {
	mapping, err := s.Mappings.Get(ctx, mappingID)
	if err != nil {
		return nil, fmt.Errorf("mapping %s not found: %w", mappingID, err)
	}
	if !mapping.IsActive {
		return nil, fmt.Errorf("mapping %s is not active", mappingID)
	}

	conn, err := s.Connections.GetConnection(ctx, mapping.ConnectionID.Hex())
	if err != nil {
		return nil, fmt.Errorf("connection %s not found: %w", mapping.ConnectionID.Hex(), err)
	}

	runID := uuid.NewString()
	syncCtx := NewSyncContext(conn.ID.Hex(), mapping.ID.Hex(), mapping.Direction)

	runLog := &SyncRunLog{
		MappingID: mapping.ID,
		RunID:     runID,
		SyncType:  mapping.Direction,
		Status:    StatusInProgress,
		StartTime: syncCtx.StartedAt,
	}
	if err := s.RunLogs.Create(ctx, runLog); err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	// An expired token without a refresh token cannot be recovered
	// mid-run; the run fails before touching any record.
	if status := conn.Status(time.Now()); status.RequiresReauth {
		syncCtx = syncCtx.RecordFailure("", "AUTH_EXPIRED", "connection requires reauthorization")
		return s.finishRun(ctx, runLog, syncCtx, runID, mapping, false)
	}

	newAdapter := s.AdapterFactory
	if newAdapter == nil {
		newAdapter = connectors.NewAdapter
	}
	adapter, err := newAdapter(connectors.AdapterConfig{
		Type:        conn.Type,
		BaseURL:     conn.BaseURL,
		Entity:      mapping.RemoteEntity,
		AccessToken: func() string { return conn.AccessToken },
		DB:          conn.RemoteConfig,
	})
	if err != nil {
		syncCtx = syncCtx.RecordFailure("", "ADAPTER_ERROR", err.Error())
		return s.finishRun(ctx, runLog, syncCtx, runID, mapping, false)
	}
	// SQL adapters hold a connection pool that must not outlive the run.
	if closer, ok := adapter.(io.Closer); ok {
		defer closer.Close()
	}

	var refresh retry.RefreshFunc
	if provider, ok := adapter.(connectors.TokenRefresher); ok {
		refresh = s.Connections.Refresher(conn, provider)
	}

	s.Logger.Info("sync run started",
		zap.String("run_id", runID),
		zap.String("mapping_id", mapping.ID.Hex()),
		zap.String("direction", mapping.Direction),
	)

	pushed := false
	if mapping.Direction == DirectionPush || mapping.Direction == DirectionBidirectional {
		syncCtx = s.runPush(ctx, mapping, adapter, refresh, syncCtx)
		pushed = true
	}
	if mapping.Direction == DirectionPull || mapping.Direction == DirectionBidirectional {
		syncCtx = s.runPull(ctx, mapping, adapter, syncCtx)
	}

	return s.finishRun(ctx, runLog, syncCtx, runID, mapping, pushed)
}

// runPush pages local records out to the partner system.
func (s *SyncServiceImpl) runPush(
	ctx context.Context,
	mapping *SyncMapping,
	adapter connectors.ExternalAdapter,
	refresh retry.RefreshFunc,
	syncCtx SyncContext,
) SyncContext {
	externalIDs, err := s.ExternalIDs.Map(ctx, mapping.ID)
	if err != nil {
		s.Logger.Error("failed to load external id links",
			zap.String("mapping_id", mapping.ID.Hex()),
			zap.Error(err),
		)
		return syncCtx.RecordFailure("", "STORAGE_ERROR", err.Error())
	}

	var offset int64
	for {
		docs, err := s.Records.ListUpdatedSince(ctx, mapping.LocalCollection, mapping.LastSyncAt, pushPageSize, offset)
		if err != nil {
			return syncCtx.RecordFailure("", "STORAGE_ERROR", err.Error())
		}
		if len(docs) == 0 {
			return syncCtx
		}
		offset += int64(len(docs))

		batch := make([]SyncRecord, 0, len(docs))
		for _, doc := range docs {
			if !EvaluateFilters(doc, mapping.Filters) {
				continue
			}
			batch = append(batch, SyncRecord{
				LocalID: localIDOf(doc),
				Data:    ApplyMappings(doc, mapping.FieldMappings, s.Resolver),
			})
		}

		progress := syncCtx
		results := ProcessBatch(ctx, BatchRequest{
			Records:     batch,
			ExternalIDs: externalIDs,
			Adapter:     adapter,
			Retry:       mapping.RetryConfig(),
			Refresh:     refresh,
			OnResult: func(r RecordSyncResult) {
				progress = progress.Fold(r)
				s.Hub.Publish(mapping.ID.Hex(), progress)
			},
		})
		syncCtx = syncCtx.Absorb(results)

		for _, r := range results {
			if r.Success && r.Operation == "create" && r.ExternalID != "" {
				externalIDs[r.LocalID] = r.ExternalID
				if err := s.ExternalIDs.Save(ctx, mapping.ID, r.LocalID, r.ExternalID); err != nil {
					s.Logger.Warn("failed to persist external id link",
						zap.String("local_id", r.LocalID),
						zap.Error(err),
					)
				}
			}
		}
		s.Hub.Publish(mapping.ID.Hex(), syncCtx)

		if len(docs) < pushPageSize {
			return syncCtx
		}
	}
}

// runPull imports remote records through the inverse field mappings.
// Adapters without list support skip the pull leg with a single
// run-level failure entry.
func (s *SyncServiceImpl) runPull(
	ctx context.Context,
	mapping *SyncMapping,
	adapter connectors.ExternalAdapter,
	syncCtx SyncContext,
) SyncContext {
	lister, ok := adapter.(connectors.RecordLister)
	if !ok {
		return syncCtx.RecordFailure("", "PULL_UNSUPPORTED", "connection type cannot list remote records")
	}

	remote, err := lister.ListRecords(ctx, mapping.LastSyncAt, pullPageSize)
	if err != nil {
		code := connectors.ErrorCode(err)
		if code == "" {
			code = "NETWORK_ERROR"
		}
		return syncCtx.RecordFailure("", code, err.Error())
	}

	inverse := InvertMappings(mapping.FieldMappings)
	for _, remoteDoc := range remote {
		doc := ApplyMappings(remoteDoc, inverse, nil)
		// Filters are written against local field names, so the pull
		// side evaluates them after mapping.
		if !EvaluateFilters(doc, mapping.Filters) {
			continue
		}

		localID := localIDOf(doc)
		if localID == "" {
			localID = localIDOf(remoteDoc)
		}
		if localID == "" {
			syncCtx = syncCtx.RecordFailure("", "MISSING_ID", "remote record has no usable identifier")
			continue
		}

		if err := s.Records.Upsert(ctx, mapping.LocalCollection, localID, doc); err != nil {
			syncCtx = syncCtx.RecordFailure(localID, "STORAGE_ERROR", err.Error())
			continue
		}
		syncCtx = syncCtx.Fold(RecordSyncResult{LocalID: localID, Success: true, Operation: "update"})
	}

	s.Hub.Publish(mapping.ID.Hex(), syncCtx)
	return syncCtx
}

// finishRun closes the run log, advances the push watermark, and
// collapses the context into its terminal result.
func (s *SyncServiceImpl) finishRun(
	ctx context.Context,
	runLog *SyncRunLog,
	syncCtx SyncContext,
	runID string,
	mapping *SyncMapping,
	advanceWatermark bool,
) (*SyncResult, error) {
	result := syncCtx.Finalize()
	result.ID = runID

	updates := map[string]interface{}{
		"status":            result.Status,
		"end_time":          result.CompletedAt,
		"records_processed": result.RecordsProcessed,
		"records_created":   result.RecordsCreated,
		"records_updated":   result.RecordsUpdated,
		"records_failed":    result.RecordsFailed,
		"errors":            result.Errors,
	}
	if err := s.RunLogs.Finish(ctx, runLog.ID, updates); err != nil {
		s.Logger.Error("failed to close run log",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}

	// The watermark only moves when the push leg actually ran and the
	// run did not fail outright, so a broken run is retried in full.
	if advanceWatermark && result.Status != StatusFailed {
		err := s.Mappings.Update(ctx, mapping.ID.Hex(), map[string]interface{}{
			"last_sync_at": result.StartedAt,
		})
		if err != nil {
			s.Logger.Warn("failed to advance sync watermark",
				zap.String("mapping_id", mapping.ID.Hex()),
				zap.Error(err),
			)
		}
	}

	s.Hub.Publish(mapping.ID.Hex(), syncCtx)
	s.Logger.Info("sync run finished",
		zap.String("run_id", runID),
		zap.String("mapping_id", mapping.ID.Hex()),
		zap.String("status", result.Status),
		zap.Int("processed", result.RecordsProcessed),
		zap.Int("failed", result.RecordsFailed),
	)
	return &result, nil
}

// localIDOf extracts the stable identifier of a schemaless document.
func localIDOf(doc map[string]interface{}) string {
	if id, ok := doc["local_id"].(string); ok && id != "" {
		return id
	}
	switch id := doc["_id"].(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	}
	if id, ok := doc["id"].(string); ok {
		return id
	}
	return ""
}
