package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncContextFoldCounts(t *testing.T) {
	ctx := NewSyncContext("conn-1", "map-1", DirectionPush)

	ctx = ctx.RecordCreate()
	ctx = ctx.RecordCreate()
	ctx = ctx.RecordUpdate()
	ctx = ctx.RecordFailure("rec-9", "VALIDATION_ERROR", "missing name")

	assert.Equal(t, 4, ctx.RecordsProcessed)
	assert.Equal(t, 2, ctx.RecordsCreated)
	assert.Equal(t, 1, ctx.RecordsUpdated)
	assert.Equal(t, 1, ctx.RecordsFailed)
	require.Len(t, ctx.Errors, 1)
	assert.Equal(t, "rec-9", ctx.Errors[0].RecordID)
	assert.Equal(t, "VALIDATION_ERROR", ctx.Errors[0].ErrorCode)
}

func TestSyncContextCopyOnUpdate(t *testing.T) {
	base := NewSyncContext("conn-1", "map-1", DirectionPush).RecordCreate()

	snapshot := base
	later := base.RecordFailure("rec-1", "TIMEOUT", "deadline exceeded")
	_ = base.RecordFailure("rec-2", "TIMEOUT", "deadline exceeded")

	assert.Equal(t, 1, snapshot.RecordsProcessed)
	assert.Equal(t, 0, snapshot.RecordsFailed)
	assert.Empty(t, snapshot.Errors)

	require.Len(t, later.Errors, 1)
	assert.Equal(t, "rec-1", later.Errors[0].RecordID)
}

func TestSyncContextErrorSlicesAreIndependent(t *testing.T) {
	base := NewSyncContext("conn-1", "map-1", DirectionPush).
		RecordFailure("rec-1", "TIMEOUT", "deadline exceeded")

	a := base.RecordFailure("rec-2", "TIMEOUT", "deadline exceeded")
	b := base.RecordFailure("rec-3", "TIMEOUT", "deadline exceeded")

	require.Len(t, a.Errors, 2)
	require.Len(t, b.Errors, 2)
	assert.Equal(t, "rec-2", a.Errors[1].RecordID)
	assert.Equal(t, "rec-3", b.Errors[1].RecordID)
	require.Len(t, base.Errors, 1)
}

func TestSyncContextAbsorbMatchesIndividualFolds(t *testing.T) {
	results := []RecordSyncResult{
		{LocalID: "a", Success: true, Operation: "create"},
		{LocalID: "b", Success: true, Operation: "update"},
		{LocalID: "c", Success: false, ErrorCode: "TIMEOUT", Error: "deadline exceeded"},
		{LocalID: "d", Success: true, Operation: "create"},
	}

	folded := NewSyncContext("conn-1", "map-1", DirectionPush)
	for _, r := range results {
		folded = folded.Fold(r)
	}
	absorbed := NewSyncContext("conn-1", "map-1", DirectionPush).Absorb(results)

	assert.Equal(t, folded.RecordsProcessed, absorbed.RecordsProcessed)
	assert.Equal(t, folded.RecordsCreated, absorbed.RecordsCreated)
	assert.Equal(t, folded.RecordsUpdated, absorbed.RecordsUpdated)
	assert.Equal(t, folded.RecordsFailed, absorbed.RecordsFailed)
	assert.Equal(t, folded.Errors, absorbed.Errors)
}

func TestSyncContextAbsorbIsOrderIndependent(t *testing.T) {
	results := []RecordSyncResult{
		{LocalID: "a", Success: true, Operation: "create"},
		{LocalID: "b", Success: true, Operation: "update"},
		{LocalID: "c", Success: false, ErrorCode: "TIMEOUT", Error: "deadline exceeded"},
		{LocalID: "d", Success: true, Operation: "create"},
		{LocalID: "e", Success: false, ErrorCode: "NOT_FOUND", Error: "gone"},
	}
	shuffled := []RecordSyncResult{results[4], results[2], results[0], results[3], results[1]}

	inOrder := NewSyncContext("conn-1", "map-1", DirectionPush).Absorb(results)
	permuted := NewSyncContext("conn-1", "map-1", DirectionPush).Absorb(shuffled)

	assert.Equal(t, inOrder.RecordsProcessed, permuted.RecordsProcessed)
	assert.Equal(t, inOrder.RecordsCreated, permuted.RecordsCreated)
	assert.Equal(t, inOrder.RecordsUpdated, permuted.RecordsUpdated)
	assert.Equal(t, inOrder.RecordsFailed, permuted.RecordsFailed)
	assert.Equal(t, inOrder.Status(), permuted.Status())
	assert.ElementsMatch(t, inOrder.Errors, permuted.Errors)
}

func TestSyncContextStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []RecordSyncResult
		want    string
	}{
		{"zero records", nil, StatusCompleted},
		{
			"all succeed",
			[]RecordSyncResult{
				{Success: true, Operation: "create"},
				{Success: true, Operation: "update"},
			},
			StatusCompleted,
		},
		{
			"all fail",
			[]RecordSyncResult{
				{ErrorCode: "TIMEOUT"},
				{ErrorCode: "TIMEOUT"},
			},
			StatusFailed,
		},
		{
			"mixed",
			[]RecordSyncResult{
				{Success: true, Operation: "create"},
				{ErrorCode: "TIMEOUT"},
			},
			StatusPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewSyncContext("conn-1", "map-1", DirectionPush).Absorb(tt.results)
			assert.Equal(t, tt.want, ctx.Status())
		})
	}
}

func TestSyncContextFinalize(t *testing.T) {
	ctx := NewSyncContext("conn-1", "map-1", DirectionBidirectional).
		RecordCreate().
		RecordFailure("rec-1", "TIMEOUT", "deadline exceeded")

	result := ctx.Finalize()

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, StatusPartial, result.Status)
	assert.Equal(t, DirectionBidirectional, result.SyncType)
	assert.Equal(t, 2, result.RecordsProcessed)
	assert.Equal(t, ctx.StartedAt, result.StartedAt)
	assert.False(t, result.CompletedAt.Before(result.StartedAt))
	require.Len(t, result.Errors, 1)
}
