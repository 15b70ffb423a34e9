package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var runLogHeaders = []string{
	"Run ID", "Direction", "Status", "Started", "Finished",
	"Processed", "Created", "Updated", "Failed", "Errors",
}

// ExportRunLogs renders a mapping's run history as an xlsx workbook.
func (s *SyncServiceImpl) ExportRunLogs(ctx context.Context, mappingID string, limit int64) (*excelize.File, error) {
	logs, err := s.RunLogs.ListByMapping(ctx, mappingID, limit)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Sync Runs"
	f.SetSheetName("Sheet1", sheet)

	for i, header := range runLogHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, log := range logs {
		values := []interface{}{
			log.RunID,
			log.SyncType,
			log.Status,
			log.StartTime.Format("2006-01-02 15:04:05"),
			log.EndTime.Format("2006-01-02 15:04:05"),
			log.RecordsProcessed,
			log.RecordsCreated,
			log.RecordsUpdated,
			log.RecordsFailed,
			summarizeErrors(log.Errors),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	return f, nil
}

func summarizeErrors(errs []SyncError) string {
	if len(errs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.RecordID != "" {
			parts = append(parts, fmt.Sprintf("%s: %s (%s)", e.RecordID, e.ErrorCode, e.Message))
		} else {
			parts = append(parts, fmt.Sprintf("%s (%s)", e.ErrorCode, e.Message))
		}
	}
	return strings.Join(parts, "; ")
}
