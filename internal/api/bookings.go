package api

import (
	"net/http"
	"strings"

	"github.com/pbaille/tripplan/internal/domain"
	"github.com/shopspring/decimal"
)

// AccommodationRequest is the request body for adding a stay
type AccommodationRequest struct {
	Name string              `json:"name"`
	Cost decimal.NullDecimal `json:"cost"`
}

func (s *Server) listAccommodations(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	accs, err := s.store.ListAccommodations(r.Context(), planID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accommodations": nonNil(accs)})
}

func (s *Server) addAccommodation(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	var req AccommodationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Cost.Valid && req.Cost.Decimal.IsNegative() {
		writeError(w, http.StatusBadRequest, "cost must not be negative")
		return
	}

	acc, err := s.store.AddAccommodation(r.Context(), domain.Accommodation{
		PlanVersionID: planID,
		Name:          strings.TrimSpace(req.Name),
		Cost:          req.Cost,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acc)
}

// TransportRequest is the request body for adding transport
type TransportRequest struct {
	Type     string              `json:"type"`
	Provider string              `json:"provider,omitempty"`
	Vehicle  string              `json:"vehicle,omitempty"`
	Cost     decimal.NullDecimal `json:"cost"`
}

func (s *Server) listTransport(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	transport, err := s.store.ListTransport(r.Context(), planID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transport": nonNil(transport)})
}

func (s *Server) addTransport(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	var req TransportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	if req.Cost.Valid && req.Cost.Decimal.IsNegative() {
		writeError(w, http.StatusBadRequest, "cost must not be negative")
		return
	}

	t, err := s.store.AddTransport(r.Context(), domain.Transport{
		PlanVersionID: planID,
		Type:          strings.TrimSpace(req.Type),
		Provider:      strings.TrimSpace(req.Provider),
		Vehicle:       strings.TrimSpace(req.Vehicle),
		Cost:          req.Cost,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// CostRequest is the request body for adding a cost line
type CostRequest struct {
	ItineraryDayID *string         `json:"itinerary_day_id,omitempty"`
	Category       string          `json:"category"`
	Item           string          `json:"item"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency,omitempty"`
}

func (s *Server) listCosts(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	costs, err := s.store.ListCosts(r.Context(), planID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"costs": nonNil(costs)})
}

func (s *Server) addCost(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	var req CostRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Item) == "" {
		writeError(w, http.StatusBadRequest, "item is required")
		return
	}
	if req.Amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	c, err := s.store.AddCost(r.Context(), domain.CostRecord{
		PlanVersionID:  planID,
		ItineraryDayID: req.ItineraryDayID,
		Category:       strings.TrimSpace(req.Category),
		Item:           strings.TrimSpace(req.Item),
		Amount:         req.Amount,
		Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}
