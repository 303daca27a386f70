package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pbaille/tripplan/internal/export"
)

func (s *Server) exportTrip(w http.ResponseWriter, r *http.Request) {
	it, err := export.Load(r.Context(), s.store, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	// Rendered in full first so a failure still gets a JSON error.
	var buf bytes.Buffer
	if err := export.WritePDF(&buf, it); err != nil {
		s.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", "trip-"+it.Trip.ID+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
