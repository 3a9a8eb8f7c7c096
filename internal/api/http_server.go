package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"nylour/internal/config"
	"nylour/internal/database"
	"nylour/internal/domain"
	"nylour/internal/models"
	"nylour/internal/service"

	"github.com/rs/zerolog"
)

// Reporter produces the day report file for a salon.
type Reporter interface {
	DayReport(ctx context.Context, salonID int64, day time.Time) (string, error)
}

// ArrivalWatcher reports the live arrival countdown for a called-up
// queue entry.
type ArrivalWatcher interface {
	Countdown(entryID int64, now time.Time) *models.ArrivalCountdown
}

// HTTPServer exposes the queue, booking and location API.
type HTTPServer struct {
	cfg        *config.APIConfig
	repo       domain.Repository
	openStatus domain.OpenStatusService
	estimator  domain.EstimatorService
	bookings   domain.BookingService
	locations  domain.LocationService
	reporter   Reporter
	arrivals   ArrivalWatcher
	server     *http.Server
	auth       *HTTPAuth
	log        zerolog.Logger
}

type Deps struct {
	Repo       domain.Repository
	OpenStatus domain.OpenStatusService
	Estimator  domain.EstimatorService
	Bookings   domain.BookingService
	Locations  domain.LocationService
	Reporter   Reporter
	Arrivals   ArrivalWatcher
}

func NewHTTPServer(cfg *config.APIConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:        cfg,
		repo:       deps.Repo,
		openStatus: deps.OpenStatus,
		estimator:  deps.Estimator,
		bookings:   deps.Bookings,
		locations:  deps.Locations,
		reporter:   deps.Reporter,
		arrivals:   deps.Arrivals,
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/api/v1/salons", srv.handleSalons)
	mux.HandleFunc("/api/v1/salons/", srv.handleSalonSubtree)
	mux.HandleFunc("/api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("/api/v1/bookings/", srv.handleCancelBooking)
	mux.HandleFunc("/api/v1/customers", srv.handleCreateCustomer)
	mux.HandleFunc("/api/v1/customers/", srv.handleCustomerSubtree)
	mux.HandleFunc("/api/v1/location/search", srv.handleLocationSearch)
	mux.HandleFunc("/api/v1/location/reverse", srv.handleLocationReverse)
	mux.HandleFunc("/api/v1/location/", srv.handleLocationCached)

	handler := Chain(mux,
		LoggingMiddleware(logger),
		MetricsMiddleware(),
		srv.auth.Wrap,
	)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the composed handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")

	var err error
	if s.cfg.TLS.Enabled {
		tlsCfg, tlsErr := buildTLSConfig(s.cfg.TLS)
		if tlsErr != nil {
			return tlsErr
		}
		s.server.TLSConfig = tlsCfg
		err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
	} else {
		err = s.server.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func buildTLSConfig(cfg config.APITLSConfig) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("api tls enabled but cert_file/key_file not set")
	}

	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if cfg.RequireClientCert {
		if cfg.ClientCAFile == "" {
			return nil, fmt.Errorf("api tls require_client_cert=true but client_ca_file not set")
		}
		caPEM, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("read client_ca_file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("failed to parse client_ca_file PEM")
		}
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
		tlsCfg.ClientCAs = pool
	}

	return tlsCfg, nil
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.ListSalons(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleSalons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	salons, err := s.repo.ListSalons(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"salons": salons})
}

// handleSalonSubtree dispatches /api/v1/salons/{id}/... by hand; the
// tree is too small to justify a router dependency.
func (s *HTTPServer) handleSalonSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/salons/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	salonID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid salon id")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleGetSalon(w, r, salonID)
	case parts[1] == "open-status" && len(parts) == 2:
		s.handleOpenStatus(w, r, salonID)
	case parts[1] == "active" && len(parts) == 2:
		s.handleSalonActive(w, r, salonID)
	case parts[1] == "hours" && len(parts) == 2:
		s.handleSalonHours(w, r, salonID)
	case parts[1] == "report" && len(parts) == 2:
		s.handleReport(w, r, salonID)
	case parts[1] == "queue":
		s.handleQueue(w, r, salonID, parts[2:])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleGetSalon(w http.ResponseWriter, r *http.Request, salonID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	salon, err := s.repo.GetSalon(r.Context(), salonID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, salon)
}

func (s *HTTPServer) handleOpenStatus(w http.ResponseWriter, r *http.Request, salonID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status, err := s.openStatus.Status(r.Context(), salonID, time.Now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *HTTPServer) handleSalonActive(w http.ResponseWriter, r *http.Request, salonID int64) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := decodeJSON(r, &body); err != nil || body.IsActive == nil {
		writeError(w, http.StatusBadRequest, "is_active is required")
		return
	}

	if err := s.openStatus.SetActive(r.Context(), salonID, *body.IsActive); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"salon_id": salonID, "is_active": *body.IsActive})
}

func (s *HTTPServer) handleSalonHours(w http.ResponseWriter, r *http.Request, salonID int64) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Hours []models.SalonHours `json:"hours"`
	}
	if err := decodeJSON(r, &body); err != nil || len(body.Hours) == 0 {
		writeError(w, http.StatusBadRequest, "hours are required")
		return
	}
	for _, h := range body.Hours {
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			writeError(w, http.StatusBadRequest, "day_of_week must be 0-6")
			return
		}
	}

	if err := s.openStatus.SetHours(r.Context(), salonID, body.Hours); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"salon_id": salonID, "days": len(body.Hours)})
}

func (s *HTTPServer) handleReport(w http.ResponseWriter, r *http.Request, salonID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	day := time.Now()
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	path, err := s.reporter.DayReport(r.Context(), salonID, day)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

func (s *HTTPServer) handleQueue(w http.ResponseWriter, r *http.Request, salonID int64, rest []string) {
	switch {
	case len(rest) == 0:
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleCheckIn(w, r, salonID)
	case rest[0] == "estimate" && len(rest) == 1:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleEstimate(w, r, salonID)
	case rest[0] == "next" && len(rest) == 1:
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleAdvanceQueue(w, r, salonID)
	case len(rest) == 1:
		switch r.Method {
		case http.MethodDelete:
			s.handleLeaveQueue(w, r, rest[0])
		case http.MethodPatch:
			s.handleQueueStatus(w, r, rest[0])
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(rest) == 2 && rest[1] == "arrival":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.handleArrival(w, r, rest[0])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleCheckIn(w http.ResponseWriter, r *http.Request, salonID int64) {
	var body struct {
		CustomerID int64 `json:"customer_id"`
		BookingID  int64 `json:"booking_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.CustomerID == 0 {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	entry, err := s.bookings.CheckIn(r.Context(), salonID, body.CustomerID, body.BookingID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *HTTPServer) handleEstimate(w http.ResponseWriter, r *http.Request, salonID int64) {
	customerID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("customer_id")), 10, 64)
	if err != nil || customerID == 0 {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	estimate, err := s.estimator.Estimate(r.Context(), salonID, customerID, time.Now())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

func (s *HTTPServer) handleAdvanceQueue(w http.ResponseWriter, r *http.Request, salonID int64) {
	entry, err := s.bookings.AdvanceQueue(r.Context(), salonID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *HTTPServer) handleLeaveQueue(w http.ResponseWriter, r *http.Request, rawEntryID string) {
	entryID, err := strconv.ParseInt(rawEntryID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	version, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("version")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	if err := s.bookings.LeaveQueue(r.Context(), entryID, version); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleQueueStatus(w http.ResponseWriter, r *http.Request, rawEntryID string) {
	entryID, err := strconv.ParseInt(rawEntryID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}

	var body struct {
		Status  string `json:"status"`
		Version int64  `json:"version"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch body.Status {
	case models.QueueStatusCompleted:
		err = s.bookings.MarkCompleted(r.Context(), entryID, body.Version)
	case models.QueueStatusNoShow:
		err = s.bookings.MarkNoShow(r.Context(), entryID, body.Version)
	default:
		writeError(w, http.StatusBadRequest, "status must be completed or no_show")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry_id": entryID, "status": body.Status})
}

func (s *HTTPServer) handleArrival(w http.ResponseWriter, r *http.Request, rawEntryID string) {
	entryID, err := strconv.ParseInt(rawEntryID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	if s.arrivals == nil {
		writeError(w, http.StatusNotFound, "no arrival deadline")
		return
	}

	countdown := s.arrivals.Countdown(entryID, time.Now())
	if countdown == nil {
		writeError(w, http.StatusNotFound, "no arrival deadline")
		return
	}
	writeJSON(w, http.StatusOK, countdown)
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrAlreadyQueued):
		writeError(w, http.StatusConflict, "already queued today")
	case errors.Is(err, database.ErrSalonInactive):
		writeError(w, http.StatusConflict, "salon is paused")
	case errors.Is(err, database.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version conflict")
	case errors.Is(err, database.ErrBookingExists):
		writeError(w, http.StatusConflict, "customer already has a booking")
	case errors.Is(err, database.ErrPastDate):
		writeError(w, http.StatusBadRequest, "date is in the past")
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many check-in attempts")
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "location permission denied")
	case errors.Is(err, service.ErrQueryTooShort), errors.Is(err, service.ErrInvalidCoordinates):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
