package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nylour/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *SheetsService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	s := &SheetsService{
		service:      srv,
		queueSheetID: "queue_tid",
		rowCache:     make(map[int64]int),
	}
	return mux, server, s
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"test"}}})
	})
	err := s.TestConnection(ctx)
	if err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"123"}, {"456"}},
		})
	})
	err := s.WarmUpCache(ctx)
	if err != nil {
		t.Errorf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow(123); !ok || row != 2 {
		t.Errorf("Expected row 2 for ID 123, got %d", row)
	}
}

func TestSheetsService_UpsertEntry_Update(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow(123, 2)
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A2:H2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	entry := &models.QueueEntry{ID: 123, SalonID: 1, CustomerID: 9, Position: 1, Status: models.QueueStatusWaiting, CheckInTime: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	err := s.UpsertEntry(entry)
	if err != nil {
		t.Errorf("UpsertEntry failed: %v", err)
	}
}

func TestSheetsService_UpsertEntry_Append(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"1"}},
		})
	})
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{
				UpdatedRange: "Queue!A10:H10",
			},
		})
	})
	entry := &models.QueueEntry{ID: 789, SalonID: 1, CustomerID: 9, Position: 4, Status: models.QueueStatusWaiting, CheckInTime: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	err := s.UpsertEntry(entry)
	if err != nil {
		t.Errorf("UpsertEntry failed: %v", err)
	}
}

func TestSheetsService_UpdateEntryStatus(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow(123, 2)
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!E2:E2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!H2:H2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	err := s.UpdateEntryStatus(123, models.QueueStatusCompleted)
	if err != nil {
		t.Errorf("UpdateEntryStatus failed: %v", err)
	}
}

func TestSheetsService_ReplaceDaySheet(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A2:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	entries := []*models.QueueEntry{
		{ID: 1, SalonID: 1, CustomerID: 9, Position: 1, Status: models.QueueStatusWaiting, CheckInTime: time.Now(), CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	err := s.ReplaceDaySheet(1, time.Now(), entries)
	if err != nil {
		t.Errorf("ReplaceDaySheet failed: %v", err)
	}
	if row, _ := s.getCachedRow(1); row != 2 {
		t.Errorf("Expected cached row 2, got %d", row)
	}
}

func TestSheetsService_FindEntryRow_FullScan(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/queue_tid/values/Queue!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"999"}},
		})
	})
	row, err := s.FindEntryRow(ctx, 999)
	if err != nil {
		t.Errorf("FindEntryRow failed: %v", err)
	}
	if row != 2 {
		t.Errorf("Expected row 2, got %d", row)
	}
}
