package xlsx

import (
	"fmt"
	"io"
	"strconv"

	"github.com/kirillkom/pii-sentinel/internal/core/domain"
	"github.com/xuri/excelize/v2"
)

const (
	DetectionsSheet = "Detections"
	RiskSheet       = "Risk"
)

var detectionHeader = []interface{}{"Type", "Value", "File", "Page", "Confidence"}

// Write renders detection rows and the risk summary as a workbook.
func Write(w io.Writer, batchID string, rows []domain.DetailRow, risk domain.RiskAssessment) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", DetectionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeDetections(f, rows, bold); err != nil {
		return err
	}
	if err := writeRisk(f, batchID, risk, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeDetections(f *excelize.File, rows []domain.DetailRow, headerStyle int) error {
	if err := f.SetSheetRow(DetectionsSheet, "A1", &detectionHeader); err != nil {
		return fmt.Errorf("write detections header: %w", err)
	}
	if err := f.SetCellStyle(DetectionsSheet, "A1", "E1", headerStyle); err != nil {
		return fmt.Errorf("style detections header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		page := ""
		if row.Page != nil {
			// Pages are zero-based upstream, one-based for readers.
			page = strconv.Itoa(*row.Page + 1)
		}
		values := []interface{}{row.Type, row.Value, row.Filename, page, row.Confidence}
		if err := f.SetSheetRow(DetectionsSheet, cell, &values); err != nil {
			return fmt.Errorf("write detection row %d: %w", i, err)
		}
	}
	return nil
}

func writeRisk(f *excelize.File, batchID string, risk domain.RiskAssessment, headerStyle int) error {
	if _, err := f.NewSheet(RiskSheet); err != nil {
		return fmt.Errorf("create risk sheet: %w", err)
	}

	summary := [][]interface{}{
		{"Batch", batchID},
		{"Risk level", string(risk.Level)},
		{"Risk percentage", risk.RiskPercentage},
		{"Total risk score", risk.TotalRiskScore},
		{"Max possible risk", risk.MaxPossibleRisk},
		{"Critical", risk.Severity.Critical},
		{"High", risk.Severity.High},
		{"Medium", risk.Severity.Medium},
		{"Low", risk.Severity.Low},
	}
	for i := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(RiskSheet, cell, &summary[i]); err != nil {
			return fmt.Errorf("write risk summary: %w", err)
		}
	}

	start := len(summary) + 2
	header := []interface{}{"Type", "Count", "Weight", "Risk"}
	headerCell, _ := excelize.CoordinatesToCellName(1, start)
	if err := f.SetSheetRow(RiskSheet, headerCell, &header); err != nil {
		return fmt.Errorf("write top risks header: %w", err)
	}
	endCell, _ := excelize.CoordinatesToCellName(4, start)
	if err := f.SetCellStyle(RiskSheet, headerCell, endCell, headerStyle); err != nil {
		return fmt.Errorf("style top risks header: %w", err)
	}
	for i, tr := range risk.TopRisks {
		cell, _ := excelize.CoordinatesToCellName(1, start+i+1)
		values := []interface{}{tr.Type, tr.Count, tr.Weight, tr.Risk}
		if err := f.SetSheetRow(RiskSheet, cell, &values); err != nil {
			return fmt.Errorf("write top risk %s: %w", tr.Type, err)
		}
	}

	for i, rec := range risk.Recommendations {
		cell, _ := excelize.CoordinatesToCellName(6, i+1)
		if err := f.SetCellValue(RiskSheet, cell, rec); err != nil {
			return fmt.Errorf("write recommendation: %w", err)
		}
	}
	return nil
}
