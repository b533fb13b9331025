package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/MikeSquared-Agency/tami/internal/lead"
)

// createLead validates and persists a fully-assembled lead delivered by the
// host application (the single-shot capture path).
func (s *Server) createLead(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	persona, _ := body["persona"].(string)
	if persona == "" {
		persona = "professional"
	}
	sessionID, _ := body["sessionId"].(string)
	delete(body, "persona")
	delete(body, "sessionId")

	payload := lead.NormalizePayload(body)
	if err := lead.Validate(payload); err != nil {
		var vErr *lead.ValidationError
		if errors.As(err, &vErr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":   "Validation failed",
				"details": vErr.Issues,
			})
			return
		}
		s.logger.Error("lead validation error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if st := s.proc.Store(); st != nil {
		id, err := st.WriteLead(r.Context(), sessionID, persona, s.proc.Strategy().Strategy, payload)
		if err != nil {
			s.logger.Error("failed to persist lead", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "lead_id": id.String()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) recentLeads(w http.ResponseWriter, r *http.Request) {
	st := s.proc.Store()
	if st == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store not configured"})
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	leads, err := st.RecentLeads(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list leads", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	out := make([]map[string]any, 0, len(leads))
	for _, l := range leads {
		out = append(out, map[string]any{
			"id":         l.ID.String(),
			"session_id": l.SessionID,
			"side":       l.Side,
			"product":    l.Product,
			"persona":    l.Persona,
			"strategy":   l.Strategy,
			"payload":    l.Payload,
			"created_at": l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": out})
}
