package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"ambulance-ews/internal/models"

	"github.com/xuri/excelize/v2"
)

// AlertEventsExportHeader 报警事件导出表头
var AlertEventsExportHeader = []string{
	"Event ID",
	"Patient ID",
	"Stage",
	"Risk Score",
	"Alert",
	"Explanation",
	"Abnormal Signals",
	"Safety Override",
	"Triggered At",
}

// GenerateAlertEventsExport 生成报警事件导出 Excel 文件
func GenerateAlertEventsExport(events []models.AlertEvent) ([]byte, error) {
	f := excelize.NewFile()
	// 注意：这里不能 defer Close()，WriteTo 需要文件保持打开

	sheetName := "Alert Events"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range AlertEventsExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for row, event := range events {
		values := []any{
			event.EventID,
			event.PatientID,
			event.Stage,
			event.RiskScore,
			event.Alert,
			event.Explanation,
			event.AbnormalSignals,
			event.SafetyOverride,
			event.TriggeredAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	f.Close()

	return buf.Bytes(), nil
}
