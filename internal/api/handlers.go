package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"nylour/internal/models"
)

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		SalonID     int64   `json:"salon_id"`
		CustomerID  int64   `json:"customer_id"`
		ServiceName string  `json:"service_name"`
		Price       float64 `json:"price"`
		Date        string  `json:"date"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.SalonID == 0 || body.CustomerID == 0 {
		writeError(w, http.StatusBadRequest, "salon_id and customer_id are required")
		return
	}

	date, err := parseBookingDate(body.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD or RFC3339")
		return
	}

	booking := &models.Booking{
		SalonID:     body.SalonID,
		CustomerID:  body.CustomerID,
		ServiceName: strings.TrimSpace(body.ServiceName),
		Price:       body.Price,
		Date:        date,
	}
	if err := s.bookings.CreateBooking(r.Context(), booking); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/"), "/")
	bookingID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}
	version, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("version")), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "version is required")
		return
	}

	fee, err := s.bookings.CancelBooking(r.Context(), bookingID, version)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking_id": bookingID, "cancellation_fee": fee})
}

func (s *HTTPServer) handleLocationSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	results, err := s.locations.Search(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *HTTPServer) handleLocationReverse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	customerID, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("customer_id")), 10, 64)
	if err != nil || customerID == 0 {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("lat")), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat is required")
		return
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("lon")), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lon is required")
		return
	}

	location, err := s.locations.Resolve(r.Context(), customerID, lat, lon)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (s *HTTPServer) handleLocationCached(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rawID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/location/"), "/")
	customerID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	location, err := s.locations.Cached(r.Context(), customerID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if location == nil {
		writeError(w, http.StatusNotFound, "no saved location")
		return
	}
	writeJSON(w, http.StatusOK, location)
}

func (s *HTTPServer) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Name           string `json:"name"`
		Phone          string `json:"phone"`
		TelegramChatID int64  `json:"telegram_chat_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	customer := &models.Customer{
		Name:           strings.TrimSpace(body.Name),
		Phone:          strings.TrimSpace(body.Phone),
		TelegramChatID: body.TelegramChatID,
	}
	if err := s.repo.CreateCustomer(r.Context(), customer); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

// handleCustomerSubtree dispatches /api/v1/customers/{id}[/...].
func (s *HTTPServer) handleCustomerSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/customers/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	customerID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleGetCustomer(w, r, customerID)
	case parts[1] == "telegram" && len(parts) == 2:
		s.handleLinkTelegram(w, r, customerID)
	case parts[1] == "bookings" && len(parts) == 2:
		s.handleCustomerBookings(w, r, customerID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleGetCustomer(w http.ResponseWriter, r *http.Request, customerID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	customer, err := s.repo.GetCustomer(r.Context(), customerID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (s *HTTPServer) handleLinkTelegram(w http.ResponseWriter, r *http.Request, customerID int64) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		ChatID int64 `json:"chat_id"`
	}
	if err := decodeJSON(r, &body); err != nil || body.ChatID == 0 {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}

	if err := s.repo.LinkTelegramChat(r.Context(), customerID, body.ChatID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer_id": customerID, "chat_id": body.ChatID})
}

func (s *HTTPServer) handleCustomerBookings(w http.ResponseWriter, r *http.Request, customerID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	bookings, err := s.repo.GetCustomerBookings(r.Context(), customerID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func parseBookingDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
