package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"nylour/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrRowNotFound is returned when an entry has no row in the sheet.
var ErrRowNotFound = errors.New("queue entry row not found")

const opTimeout = 30 * time.Second

// SheetsService mirrors the waiting queue to a Google spreadsheet.
// The "Queue" sheet holds one row per queue entry; column A is the
// entry ID and doubles as the row-lookup key.
type SheetsService struct {
	service      *sheets.Service
	queueSheetID string
	rowCache     map[int64]int
	cacheMu      sync.RWMutex
}

func NewSheetsService(credentialsFile, queueSheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:      srv,
		queueSheetID: queueSheetID,
		rowCache:     make(map[int64]int),
	}

	// Warm up cache in background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		service.WarmUpCache(ctx)
	}()

	// Periodic cache refresh every 1 hour
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
			service.WarmUpCache(ctx)
			cancel()
		}
	}()

	return service, nil
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.queueSheetID, "Queue!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.queueSheetID, "Queue!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		var id int64
		switch v := row[0].(type) {
		case float64:
			id = int64(v)
		case string:
			fmt.Sscanf(v, "%d", &id)
		}
		if id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// UpsertEntry updates the row of an existing queue entry or appends a new one.
func (s *SheetsService) UpsertEntry(entry *models.QueueEntry) error {
	if entry == nil {
		return fmt.Errorf("queue entry is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rowIdx, err := s.FindEntryRow(ctx, entry.ID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.appendEntry(ctx, entry)
		}
		return err
	}

	rangeData := fmt.Sprintf("Queue!A%d:H%d", rowIdx, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{entryRowValues(entry)},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.queueSheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (s *SheetsService) appendEntry(ctx context.Context, entry *models.QueueEntry) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{entryRowValues(entry)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.queueSheetID, "Queue!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// UpdateEntryStatus updates status (and UpdatedAt) for a queue entry row.
func (s *SheetsService) UpdateEntryStatus(entryID int64, status string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rowIdx, err := s.FindEntryRow(ctx, entryID)
	if err != nil {
		return err
	}

	now := time.Now().Format("2006-01-02 15:04:05")

	statusRange := fmt.Sprintf("Queue!E%d:E%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.queueSheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("Queue!H%d:H%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.queueSheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{now}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// ReplaceDaySheet полностью перезаписывает лист очереди за день
func (s *SheetsService) ReplaceDaySheet(salonID int64, day time.Time, entries []*models.QueueEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	// Очищаем весь лист (кроме заголовков в строке 1)
	clearRange := "Queue!A2:Z"
	_, err := s.service.Spreadsheets.Values.Clear(s.queueSheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear queue sheet: %v", err)
	}

	header := []interface{}{"ID", "Salon ID", "Customer ID", "Position", "Status", "Check-In", "Created At", "Updated At"}
	headerRange := &sheets.ValueRange{Values: [][]interface{}{header}}
	_, err = s.service.Spreadsheets.Values.Update(s.queueSheetID, "Queue!A1", headerRange).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write queue header: %v", err)
	}

	var values [][]interface{}
	for _, entry := range entries {
		values = append(values, entryRowValues(entry))
	}

	if len(values) > 0 {
		valueRange := &sheets.ValueRange{Values: values}
		_, err = s.service.Spreadsheets.Values.Update(s.queueSheetID, "Queue!A2", valueRange).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("failed to update queue sheet: %v", err)
		}
	}

	// Re-populate cache
	s.cacheMu.Lock()
	s.rowCache = make(map[int64]int)
	for i, e := range entries {
		s.rowCache[e.ID] = i + 2 // +2 because data starts at row 2
	}
	s.cacheMu.Unlock()

	return nil
}

// FindEntryRow locates row index (1-based) for entryID in column A with cache.
func (s *SheetsService) FindEntryRow(ctx context.Context, entryID int64) (int, error) {
	if entryID == 0 {
		return 0, fmt.Errorf("entry id is required")
	}

	if row, ok := s.getCachedRow(entryID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.queueSheetID, "Queue!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		switch v := row[0].(type) {
		case float64:
			if int64(v) == entryID {
				rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
				s.setCachedRow(entryID, rowIdx)
				return rowIdx, nil
			}
		case string:
			// if ID stored as string
			if v == fmt.Sprintf("%d", entryID) {
				rowIdx := i + 1
				s.setCachedRow(entryID, rowIdx)
				return rowIdx, nil
			}
		}
	}

	return 0, ErrRowNotFound
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func entryRowValues(entry *models.QueueEntry) []interface{} {
	return []interface{}{
		entry.ID,
		entry.SalonID,
		entry.CustomerID,
		entry.Position,
		entry.Status,
		entry.CheckInTime.Format("2006-01-02 15:04:05"),
		entry.CreatedAt.Format("2006-01-02 15:04:05"),
		entry.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
