package leave

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/port"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
)

const reportSheet = "Leave Balances"

// ReportExporter writes the stored leave balances to an Excel workbook
// for the HR team
type ReportExporter struct {
	balances port.LeaveBalanceRepository
	logger   *zap.Logger
}

// NewReportExporter creates a balance report exporter
func NewReportExporter(balances port.LeaveBalanceRepository, logger *zap.Logger) *ReportExporter {
	return &ReportExporter{
		balances: balances,
		logger:   logger,
	}
}

// Export writes one row per subject to outputPath, one column per bucket.
// Buckets are the union across all subjects so the sheet stays rectangular.
func (re *ReportExporter) Export(ctx context.Context, outputPath string) error {
	all, err := re.balances.List(ctx)
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}

	buckets := collectBuckets(all)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := re.writeHeader(f, buckets); err != nil {
		return err
	}

	sort.Slice(all, func(i, j int) bool { return all[i].SubjectID < all[j].SubjectID })
	for row, bal := range all {
		if err := re.setCell(f, 1, row+2, bal.SubjectID); err != nil {
			return err
		}
		for col, bucket := range buckets {
			if err := re.setCell(f, col+2, row+2, bal.Balances[bucket]); err != nil {
				return err
			}
		}
		if err := re.setCell(f, len(buckets)+2, row+2, bal.LastUpdated.Format("2006-01-02 15:04:05")); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	re.logger.Info("Leave balance report exported",
		zap.String("path", outputPath),
		zap.Int("subjects", len(all)))
	return nil
}

func (re *ReportExporter) writeHeader(f *excelize.File, buckets []string) error {
	if err := re.setCell(f, 1, 1, "Subject"); err != nil {
		return err
	}
	for col, bucket := range buckets {
		if err := re.setCell(f, col+2, 1, bucket); err != nil {
			return err
		}
	}
	return re.setCell(f, len(buckets)+2, 1, "Last Updated")
}

func (re *ReportExporter) setCell(f *excelize.File, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell coordinates (%d,%d): %w", col, row, err)
	}
	if err := f.SetCellValue(reportSheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}

// collectBuckets returns the sorted union of bucket names across subjects
func collectBuckets(all []*entity.LeaveBalance) []string {
	seen := make(map[string]bool)
	for _, bal := range all {
		for bucket := range bal.Balances {
			seen[bucket] = true
		}
	}
	buckets := make([]string, 0, len(seen))
	for b := range seen {
		buckets = append(buckets, b)
	}
	sort.Strings(buckets)
	return buckets
}
