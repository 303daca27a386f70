package api

import (
	"net/http"
	"strings"

	"github.com/pbaille/tripplan/internal/checklist"
	"github.com/pbaille/tripplan/internal/domain"
	"github.com/shopspring/decimal"
)

// ChecklistResponse is a plan's checklist with its footer sums
type ChecklistResponse struct {
	Items []domain.ChecklistItem `json:"items"`
	Total decimal.Decimal        `json:"total"`
	Paid  decimal.Decimal        `json:"paid"`
}

func (s *Server) listChecklist(w http.ResponseWriter, r *http.Request) {
	planID, ok := s.planID(w, r)
	if !ok {
		return
	}
	items, err := s.store.ListChecklistItems(r.Context(), planID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	total, paid := checklist.Totals(items)
	writeJSON(w, http.StatusOK, ChecklistResponse{Items: nonNil(items), Total: total, Paid: paid})
}

// ManualItemRequest is the request body for adding a hand-entered item
type ManualItemRequest struct {
	Name      string          `json:"name"`
	Category  string          `json:"category,omitempty"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

func (s *Server) addChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req ManualItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.TotalCost.IsNegative() {
		writeError(w, http.StatusBadRequest, "total_cost must not be negative")
		return
	}

	item, err := s.checklist.AddManual(r.Context(), r.PathValue("id"), req.Name, req.Category, req.TotalCost)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) seedChecklist(w http.ResponseWriter, r *http.Request) {
	report, err := s.checklist.SeedPlan(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) checklistDuplicates(w http.ResponseWriter, r *http.Request) {
	c, err := s.checklist.Duplicates(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	c.Candidates, c.Safe, c.Unsafe = nonNil(c.Candidates), nonNil(c.Safe), nonNil(c.Unsafe)
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) cleanupChecklist(w http.ResponseWriter, r *http.Request) {
	report, err := s.checklist.Cleanup(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	report.Unsafe = nonNil(report.Unsafe)
	writeJSON(w, http.StatusOK, report)
}

// ResetRequest carries the confirmation text for a checklist reset
type ResetRequest struct {
	Confirm string `json:"confirm"`
}

func (s *Server) resetChecklist(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	report, err := s.checklist.Reset(r.Context(), r.PathValue("id"), req.Confirm)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) cycleChecklistItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.checklist.CycleStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ChecklistPatch is the request body for editing a checklist item. Absent
// fields keep their value.
type ChecklistPatch struct {
	Name             *string          `json:"name,omitempty"`
	Category         *string          `json:"category,omitempty"`
	TotalCost        *decimal.Decimal `json:"total_cost,omitempty"`
	AmountPaid       *decimal.Decimal `json:"amount_paid,omitempty"`
	BookingReference *string          `json:"booking_reference,omitempty"`
	BookingURL       *string          `json:"booking_url,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	PaymentType      *string          `json:"payment_type,omitempty"`
}

func (s *Server) patchChecklistItem(w http.ResponseWriter, r *http.Request) {
	var req ChecklistPatch
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	item, err := s.store.GetChecklistItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, http.StatusBadRequest, "name must not be empty")
			return
		}
		item.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.TotalCost != nil {
		item.TotalCost = *req.TotalCost
	}
	if req.AmountPaid != nil {
		item.AmountPaid = *req.AmountPaid
	}
	if item.TotalCost.IsNegative() || item.AmountPaid.IsNegative() {
		writeError(w, http.StatusBadRequest, "amounts must not be negative")
		return
	}
	if req.BookingReference != nil {
		item.BookingReference = *req.BookingReference
	}
	if req.BookingURL != nil {
		item.BookingURL = *req.BookingURL
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}
	if req.PaymentType != nil {
		item.PaymentType = *req.PaymentType
	}

	if err := s.store.UpdateChecklistItem(r.Context(), *item); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}
