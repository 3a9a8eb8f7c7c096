package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nylour/internal/domain"
	"nylour/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter renders a salon's queue day into an xlsx file.
type Exporter struct {
	repo   domain.Repository
	dir    string
	logger *zerolog.Logger
}

func NewExporter(repo domain.Repository, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{repo: repo, dir: dir, logger: logger}
}

// DayReport writes the full queue log of the salon day and returns the
// file path. Entries of every status appear so no-shows and
// cancellations stay visible in the report.
func (e *Exporter) DayReport(ctx context.Context, salonID int64, day time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	salon, err := e.repo.GetSalon(ctx, salonID)
	if err != nil {
		return "", fmt.Errorf("error getting salon: %v", err)
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	entries, err := e.repo.DailyQueueLog(ctx, salonID, dayStart)
	if err != nil {
		return "", fmt.Errorf("error getting queue log: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Queue"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — %s", salon.Name, dayStart.Format("02.01.2006")))
	_ = f.MergeCell(sheetName, "A1", "F1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	e.writeHeaders(f, sheetName)
	e.writeEntries(f, sheetName, entries)
	e.writeSummary(f, sheetName, salon, entries)

	_ = f.SetColWidth(sheetName, "A", "A", 10)
	_ = f.SetColWidth(sheetName, "B", "B", 12)
	_ = f.SetColWidth(sheetName, "C", "C", 15)
	_ = f.SetColWidth(sheetName, "D", "D", 14)
	_ = f.SetColWidth(sheetName, "E", "E", 12)
	_ = f.SetColWidth(sheetName, "F", "F", 20)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("queue_%d_%s.xlsx", salonID, dayStart.Format("2006-01-02"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int64("salon_id", salonID).Msg("Excel file created")
	return filePath, nil
}

func (e *Exporter) writeHeaders(f *excelize.File, sheetName string) {
	headers := []string{"ID", "Position", "Customer", "Status", "Check-In", "Last Update"}

	style, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

func (e *Exporter) writeEntries(f *excelize.File, sheetName string, entries []*models.QueueEntry) {
	for i, entry := range entries {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), entry.ID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), entry.Position)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry.CustomerID)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), entry.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), entry.CheckInTime.Format("15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), entry.UpdatedAt.Format("02.01.2006 15:04"))

		styleID, err := e.statusStyle(f, entry.Status)
		if err == nil {
			_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), styleID)
		}
	}
}

func (e *Exporter) writeSummary(f *excelize.File, sheetName string, salon *models.Salon, entries []*models.QueueEntry) {
	var waiting, served, noShows, cancelled int
	for _, entry := range entries {
		switch entry.Status {
		case models.QueueStatusWaiting, models.QueueStatusInService:
			waiting++
		case models.QueueStatusCompleted:
			served++
		case models.QueueStatusNoShow:
			noShows++
		case models.QueueStatusCancelled:
			cancelled++
		}
	}

	row := len(entries) + 4
	lines := []string{
		fmt.Sprintf("Total: %d", len(entries)),
		fmt.Sprintf("In queue: %d", waiting),
		fmt.Sprintf("Served: %d", served),
		fmt.Sprintf("No-shows: %d", noShows),
		fmt.Sprintf("Cancelled: %d", cancelled),
		fmt.Sprintf("Avg service: %d min", salon.AvgServiceMinutes),
	}

	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for i, line := range lines {
		cell := fmt.Sprintf("A%d", row+i)
		_ = f.SetCellValue(sheetName, cell, line)
		_ = f.SetCellStyle(sheetName, cell, cell, style)
	}
}

// statusStyle returns the row fill by entry status.
func (e *Exporter) statusStyle(f *excelize.File, status string) (int, error) {
	var color string
	switch status {
	case models.QueueStatusCompleted:
		color = "#C6EFCE"
	case models.QueueStatusInService:
		color = "#FFEB9C"
	case models.QueueStatusNoShow, models.QueueStatusCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
		},
	})
}
