package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/pbaille/tripplan/internal/resolver"
)

const dateLayout = "2006-01-02"

// TripRequest is the request body for creating a trip
type TripRequest struct {
	Name        string `json:"name"`
	Destination string `json:"destination,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

func (s *Server) listTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.store.ListTrips(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": nonNil(trips)})
}

func (s *Server) createTrip(w http.ResponseWriter, r *http.Request) {
	var req TripRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	start, ok := parseOptionalDate(req.StartDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, ok := parseOptionalDate(req.EndDate)
	if !ok {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	trip, err := s.store.CreateTrip(r.Context(), domain.Trip{
		Name:        strings.TrimSpace(req.Name),
		Destination: req.Destination,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.store.GetTrip(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

func (s *Server) listPlanVersions(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")
	if _, err := s.store.GetTrip(r.Context(), tripID); err != nil {
		s.writeServiceError(w, err)
		return
	}
	pvs, err := s.store.ListPlanVersions(r.Context(), tripID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan_versions": nonNil(pvs)})
}

// PlanVersionRequest is the request body for creating a plan version
type PlanVersionRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
	IsActive bool   `json:"is_active,omitempty"`
}

func (s *Server) createPlanVersion(w http.ResponseWriter, r *http.Request) {
	tripID := r.PathValue("id")
	var req PlanVersionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if _, err := s.store.GetTrip(r.Context(), tripID); err != nil {
		s.writeServiceError(w, err)
		return
	}

	pv, err := s.store.CreatePlanVersion(r.Context(), domain.PlanVersion{
		TripID:   tripID,
		Name:     strings.TrimSpace(req.Name),
		Currency: strings.ToUpper(strings.TrimSpace(req.Currency)),
		IsActive: req.IsActive,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pv)
}

func (s *Server) getPlanVersion(w http.ResponseWriter, r *http.Request) {
	pv, err := s.store.GetPlanVersion(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pv)
}

// CloneRequest is the optional body of a plan version clone
type CloneRequest struct {
	Name string `json:"name,omitempty"`
}

func (s *Server) clonePlanVersion(w http.ResponseWriter, r *http.Request) {
	var req CloneRequest
	// The body is optional.
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	pv, err := s.store.ClonePlanVersion(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pv)
}

// planID returns the plan version in the path, answering 404 itself when
// it does not exist.
func (s *Server) planID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := s.store.GetPlanVersion(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return "", false
	}
	return id, true
}

func (s *Server) listDays(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	days, err := s.store.ListDays(r.Context(), planID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": nonNil(days)})
}

// DayRequest is the request body for adding an itinerary day
type DayRequest struct {
	DayNumber   int             `json:"day_number"`
	Date        string          `json:"date,omitempty"`
	Location    string          `json:"location"`
	Coordinates json.RawMessage `json:"location_coordinates,omitempty"`
}

func (s *Server) addDay(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	var req DayRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DayNumber < 1 {
		writeError(w, http.StatusBadRequest, "day_number must be positive")
		return
	}
	date, ok := parseOptionalDate(req.Date)
	if !ok {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	day := domain.ItineraryDay{
		PlanVersionID: planID,
		DayNumber:     req.DayNumber,
		Date:          date,
		Location:      strings.TrimSpace(req.Location),
	}
	if ll, ok := domain.ParseLatLng(req.Coordinates); ok {
		day.Coordinates = &ll
	}

	created, err := s.store.AddDay(r.Context(), day)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	day, err := s.store.GetDay(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// DayPatch is the request body for editing a day. A new location clears
// the stored coordinates unless new ones are sent along.
type DayPatch struct {
	Location    *string         `json:"location,omitempty"`
	Coordinates json.RawMessage `json:"location_coordinates,omitempty"`
}

func (s *Server) patchDay(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req DayPatch
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var coords *domain.LatLng
	if len(req.Coordinates) > 0 && string(req.Coordinates) != "null" {
		ll, ok := domain.ParseLatLng(req.Coordinates)
		if !ok {
			writeError(w, http.StatusBadRequest, "location_coordinates must hold numeric lat and lng")
			return
		}
		coords = &ll
	}

	if req.Location != nil {
		if err := s.store.UpdateDayLocation(r.Context(), id, strings.TrimSpace(*req.Location)); err != nil {
			s.writeServiceError(w, err)
			return
		}
	}
	if coords != nil {
		if err := s.store.SetDayCoordinates(r.Context(), id, *coords); err != nil {
			s.writeServiceError(w, err)
			return
		}
	}

	day, err := s.store.GetDay(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// GeocodeResponse reports one resolver invocation
type GeocodeResponse struct {
	UpdatedCount int               `json:"updated_count"`
	Updated      []resolver.Update `json:"updated"`
	SkippedCount int               `json:"skipped_count"`
	Skipped      []resolver.Skip   `json:"skipped"`
	Message      string            `json:"message,omitempty"`
}

func (s *Server) geocodeMissing(w http.ResponseWriter, r *http.Request) {
	report, err := s.resolver.ResolveMissing(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GeocodeResponse{
		UpdatedCount: len(report.Updated),
		Updated:      nonNil(report.Updated),
		SkippedCount: len(report.Skipped),
		Skipped:      nonNil(report.Skipped),
		Message:      report.Message,
	})
}

func parseOptionalDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
