package sync

import (
	"context"
	"testing"
	"time"

	"go-bms/internal/connectors"
	"go-bms/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedAdapter fails each payload's "fail_codes" in order before
// succeeding, mimicking a flaky partner API.
type scriptedAdapter struct {
	creates  []string
	updates  []string
	attempts map[string]int
}

func newScriptedAdapter() *scriptedAdapter {
	return &scriptedAdapter{attempts: map[string]int{}}
}

func (a *scriptedAdapter) step(payload map[string]interface{}) error {
	id, _ := payload["id"].(string)
	n := a.attempts[id]
	a.attempts[id] = n + 1

	codes, _ := payload["fail_codes"].([]string)
	if n < len(codes) {
		return &connectors.AdapterError{Code: codes[n], Message: "scripted failure"}
	}
	return nil
}

func (a *scriptedAdapter) CreateRecord(ctx context.Context, payload map[string]interface{}) (*connectors.RecordOutcome, error) {
	if err := a.step(payload); err != nil {
		return nil, err
	}
	id, _ := payload["id"].(string)
	a.creates = append(a.creates, id)
	return &connectors.RecordOutcome{Success: true, ExternalID: "ext-" + id}, nil
}

func (a *scriptedAdapter) UpdateRecord(ctx context.Context, externalID string, payload map[string]interface{}) (*connectors.RecordOutcome, error) {
	if err := a.step(payload); err != nil {
		return nil, err
	}
	a.updates = append(a.updates, externalID)
	return &connectors.RecordOutcome{Success: true, ExternalID: externalID}, nil
}

func fastRetry() retry.Config {
	return retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func pushRecord(id string, failCodes ...string) SyncRecord {
	data := map[string]interface{}{"id": id}
	if len(failCodes) > 0 {
		data["fail_codes"] = failCodes
	}
	return SyncRecord{LocalID: id, Data: data}
}

func TestProcessBatchRoutesCreateAndUpdate(t *testing.T) {
	adapter := newScriptedAdapter()
	results := ProcessBatch(context.Background(), BatchRequest{
		Records:     []SyncRecord{pushRecord("a"), pushRecord("b")},
		ExternalIDs: map[string]string{"b": "ext-b"},
		Adapter:     adapter,
		Retry:       fastRetry(),
	})

	require.Len(t, results, 2)
	assert.Equal(t, "create", results[0].Operation)
	assert.Equal(t, "ext-a", results[0].ExternalID)
	assert.Equal(t, "update", results[1].Operation)
	assert.Equal(t, "ext-b", results[1].ExternalID)
	assert.Equal(t, []string{"a"}, adapter.creates)
	assert.Equal(t, []string{"ext-b"}, adapter.updates)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	adapter := newScriptedAdapter()
	results := ProcessBatch(context.Background(), BatchRequest{
		Records: []SyncRecord{
			pushRecord("a"),
			pushRecord("b", "VALIDATION_ERROR"),
			pushRecord("c"),
		},
		Adapter: adapter,
		Retry:   fastRetry(),
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "VALIDATION_ERROR", results[1].ErrorCode)
	assert.True(t, results[2].Success, "a failed record must not stop the batch")

	// One create attempt per record: the fatal failure neither retries
	// nor spills onto its neighbours.
	assert.Equal(t, 1, adapter.attempts["a"])
	assert.Equal(t, 1, adapter.attempts["b"])
	assert.Equal(t, 1, adapter.attempts["c"])
	assert.Equal(t, []string{"a", "c"}, adapter.creates)
}

func TestProcessBatchRetriesTransientFailures(t *testing.T) {
	adapter := newScriptedAdapter()
	results := ProcessBatch(context.Background(), BatchRequest{
		Records: []SyncRecord{
			pushRecord("a", "NETWORK_ERROR", "TIMEOUT"),
			pushRecord("b", "NETWORK_ERROR", "NETWORK_ERROR", "NETWORK_ERROR"),
		},
		Adapter: adapter,
		Retry:   fastRetry(),
	})

	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.Equal(t, 2, results[0].Retries)

	assert.False(t, results[1].Success)
	assert.Equal(t, "NETWORK_ERROR", results[1].ErrorCode)
	assert.Equal(t, 2, results[1].Retries)
	assert.Equal(t, 3, adapter.attempts["b"])
}

func TestProcessBatchRefreshesTokenOnce(t *testing.T) {
	adapter := newScriptedAdapter()
	refreshCalls := 0

	results := ProcessBatch(context.Background(), BatchRequest{
		Records: []SyncRecord{pushRecord("a", "UNAUTHORIZED")},
		Adapter: adapter,
		Retry:   fastRetry(),
		Refresh: func(ctx context.Context) error {
			refreshCalls++
			return nil
		},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.True(t, results[0].TokenRefreshed)
	assert.Equal(t, 0, results[0].Retries)
	assert.Equal(t, 1, refreshCalls)
}

func TestProcessBatchCancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	adapter := newScriptedAdapter()
	var once bool
	results := ProcessBatch(ctx, BatchRequest{
		Records: []SyncRecord{pushRecord("a"), pushRecord("b"), pushRecord("c")},
		Adapter: adapter,
		Retry:   fastRetry(),
		OnResult: func(r RecordSyncResult) {
			if !once {
				once = true
				cancel()
			}
		},
	})

	require.Len(t, results, 3)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.Equal(t, "CANCELLED", results[1].ErrorCode)
	assert.Equal(t, "CANCELLED", results[2].ErrorCode)
	assert.Equal(t, 0, adapter.attempts["b"], "cancelled records are not attempted")
}

func TestProcessBatchReportsProgress(t *testing.T) {
	adapter := newScriptedAdapter()
	var seen []string

	ProcessBatch(context.Background(), BatchRequest{
		Records: []SyncRecord{pushRecord("a"), pushRecord("b", "NOT_FOUND")},
		Adapter: adapter,
		Retry:   fastRetry(),
		OnResult: func(r RecordSyncResult) {
			seen = append(seen, r.LocalID)
		},
	})

	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestProcessBatchEmpty(t *testing.T) {
	results := ProcessBatch(context.Background(), BatchRequest{
		Adapter: newScriptedAdapter(),
		Retry:   fastRetry(),
	})
	assert.Empty(t, results)
}
