package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/mux"
)

// maxAuditBody caps how much of a request or response body is kept.
const maxAuditBody = 4 << 10

func (s *Server) auditLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entry := AuditLogEntry{
			Timestamp: s.timeNow(),
			Method:    r.Method,
			Path:      r.URL.Path,
			Handler:   "unknown",
			OrderID:   mux.Vars(r)["id"],
		}
		if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
			entry.Handler = route.GetName()
		}
		if username, _, ok := r.BasicAuth(); ok {
			entry.UserID = username
		}

		if r.Body != nil && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			requestBody, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
			entry.Request = truncate(requestBody)

			if entry.OrderID != "" && r.Method == http.MethodPatch {
				var statusRequest struct {
					Status *string `json:"status"`
				}
				if err := json.Unmarshal(requestBody, &statusRequest); err == nil && statusRequest.Status != nil {
					entry.NewStatus = *statusRequest.Status
					if o, err := s.storage.GetOrder(r.Context(), entry.OrderID); err == nil {
						entry.OldStatus = string(o.Status)
					}
				}
			}
		}

		wrw := newResponseWriterWrapper(w, true)

		next.ServeHTTP(wrw, r)

		entry.StatusCode = wrw.GetStatusCode()
		entry.Response = truncate(wrw.GetBody())

		s.AuditManager.LogEntry(r.Context(), entry)
	})
}

// truncate caps b at maxAuditBody without splitting a UTF-8 sequence.
func truncate(b []byte) string {
	if len(b) <= maxAuditBody {
		return string(b)
	}
	cut := maxAuditBody
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return string(b[:cut]) + "..."
}
