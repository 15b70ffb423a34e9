package sync

import (
	"context"

	"go-bms/internal/connectors"
	"go-bms/pkg/retry"

	"go.uber.org/zap"
)

// BatchRequest is everything one batch pass needs: the records to push,
// the adapter to push them through, and the known local-to-external id
// links that route each record to create or update.
type BatchRequest struct {
	Records     []SyncRecord
	ExternalIDs map[string]string
	Adapter     connectors.ExternalAdapter
	Retry       retry.Config
	Refresh     retry.RefreshFunc

	// OnResult, when set, observes each record outcome as it lands.
	OnResult func(RecordSyncResult)
}

// ProcessBatch pushes the batch record by record. A record failure is
// contained to that record; the rest of the batch still runs. When the
// context is cancelled mid-batch, the remaining records are marked
// failed without being attempted.
func ProcessBatch(ctx context.Context, req BatchRequest) []RecordSyncResult {
	results := make([]RecordSyncResult, 0, len(req.Records))

	for i, record := range req.Records {
		if ctx.Err() != nil {
			for _, skipped := range req.Records[i:] {
				r := RecordSyncResult{
					LocalID:   skipped.LocalID,
					Operation: operationFor(skipped, req.ExternalIDs),
					Error:     ctx.Err().Error(),
					ErrorCode: "CANCELLED",
				}
				results = append(results, r)
				if req.OnResult != nil {
					req.OnResult(r)
				}
			}
			break
		}

		r := processRecord(ctx, record, req)
		results = append(results, r)
		if req.OnResult != nil {
			req.OnResult(r)
		}
	}

	return results
}

func operationFor(record SyncRecord, externalIDs map[string]string) string {
	if _, ok := externalIDs[record.LocalID]; ok {
		return "update"
	}
	return "create"
}

func processRecord(ctx context.Context, record SyncRecord, req BatchRequest) RecordSyncResult {
	operation := operationFor(record, req.ExternalIDs)

	op := func(ctx context.Context) (interface{}, string, error) {
		var outcome *connectors.RecordOutcome
		var err error
		if operation == "update" {
			outcome, err = req.Adapter.UpdateRecord(ctx, req.ExternalIDs[record.LocalID], record.Data)
		} else {
			outcome, err = req.Adapter.CreateRecord(ctx, record.Data)
		}
		if err != nil {
			return nil, connectors.ErrorCode(err), err
		}
		return outcome, "", nil
	}

	res := retry.Do(ctx, op, req.Retry, req.Refresh)

	result := RecordSyncResult{
		LocalID:        record.LocalID,
		Operation:      operation,
		Retries:        res.RetryCount,
		TokenRefreshed: res.TokenRefreshed,
	}

	if !res.Success {
		result.ErrorCode = res.ErrorCode
		if res.Err != nil {
			result.Error = res.Err.Error()
		}
		zap.L().Warn("record sync failed",
			zap.String("local_id", record.LocalID),
			zap.String("operation", operation),
			zap.String("error_code", result.ErrorCode),
			zap.Int("retries", result.Retries))
		return result
	}

	result.Success = true
	if outcome, ok := res.Payload.(*connectors.RecordOutcome); ok && outcome != nil {
		result.ExternalID = outcome.ExternalID
	}
	if result.ExternalID == "" && operation == "update" {
		result.ExternalID = req.ExternalIDs[record.LocalID]
	}
	return result
}
