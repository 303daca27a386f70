package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pbaille/tripplan/internal/assistant"
	"github.com/pbaille/tripplan/internal/domain"
	"github.com/pbaille/tripplan/internal/fetcher"
	"go.uber.org/zap"
)

func (s *Server) exchangeRate(w http.ResponseWriter, r *http.Request) {
	if s.rates == nil {
		writeError(w, http.StatusServiceUnavailable, "exchange rates are not configured")
		return
	}
	q := r.URL.Query()
	rate, err := s.rates.Latest(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		s.logger.Warn("exchange rate lookup failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) {
	if s.weather == nil {
		writeError(w, http.StatusServiceUnavailable, "weather is not configured")
		return
	}
	q := r.URL.Query()
	if q.Get("lat") == "" || q.Get("lng") == "" {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	ll := domain.LatLng{Lat: lat, Lng: lng}
	if latErr != nil || lngErr != nil || !ll.Valid() {
		writeError(w, http.StatusBadRequest, "lat and lng must be numbers")
		return
	}

	f, err := s.weather.Daily(r.Context(), ll)
	if err != nil {
		s.logger.Warn("forecast lookup failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	f.Days = nonNil(f.Days)
	writeJSON(w, http.StatusOK, f)
}

// ExtractLinkRequest is the request body for booking link extraction
type ExtractLinkRequest struct {
	URL      string `json:"url"`
	ItemType string `json:"item_type"`
}

// ExtractLinkResponse carries whatever the assistant pulled from the page
type ExtractLinkResponse struct {
	Extracted json.RawMessage `json:"extracted"`
	SourceURL string          `json:"source_url"`
}

func (s *Server) extractLink(w http.ResponseWriter, r *http.Request) {
	if s.fetcher == nil || s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "link extraction is not configured")
		return
	}
	var req ExtractLinkRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" || strings.TrimSpace(req.ItemType) == "" {
		writeError(w, http.StatusBadRequest, "url and item_type are required")
		return
	}

	text, err := s.fetcher.Fetch(r.Context(), req.URL)
	if err != nil {
		var se *fetcher.StatusError
		if errors.As(err, &se) {
			writeError(w, http.StatusBadRequest, se.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	extracted, err := assistant.ExtractBooking(r.Context(), s.assistant, req.ItemType, text)
	if err != nil {
		s.logger.Warn("link extraction failed", zap.String("url", req.URL), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ExtractLinkResponse{Extracted: extracted, SourceURL: req.URL})
}
