package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tami/internal/lead"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

// Tool names exposed to the voice platform.
const (
	ToolAddOrUpdateLeadField = "addOrUpdateLeadField"
	ToolFinalizeLeadDraft    = "finalizeLeadDraft"
	ToolGetMissingFields     = "getMissingFields"
	ToolGetDraftSummary      = "getDraftSummary"
	ToolGenerateRecap        = "generateRecap"
)

type toolCallRequest struct {
	Tool      string         `json:"tool"`
	SessionID string         `json:"session_id"`
	DraftID   string         `json:"draft_id"`
	Args      map[string]any `json:"args"`
}

// toolFailure carries a tool-level error back through the transport envelope.
// Tool failures are reported in-band with status 200; only malformed requests
// get an HTTP error.
type toolFailure struct {
	message string
	code    string
}

func (f *toolFailure) Error() string { return f.message }

func (s *Server) toolCall(w http.ResponseWriter, r *http.Request) {
	var req toolCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Tool == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tool is required"})
		return
	}

	s.emitter.Emit(telemetry.ToolCallStart(req.Tool, req.SessionID))
	start := time.Now()

	meta, err := s.dispatch(r.Context(), &req)
	durationMs := time.Since(start).Milliseconds()

	if err != nil {
		s.emitter.Emit(telemetry.ToolCallError(req.Tool, req.SessionID, durationMs, err.Error()))

		code := "tool_failed"
		var failure *toolFailure
		if errors.As(err, &failure) {
			code = failure.code
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":    false,
			"tool":  req.Tool,
			"ts":    time.Now().UnixMilli(),
			"error": err.Error(),
			"code":  code,
		})
		return
	}

	s.emitter.Emit(telemetry.ToolCallSuccess(req.Tool, req.SessionID, durationMs))
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"tool": req.Tool,
		"ts":   time.Now().UnixMilli(),
		"meta": meta,
	})
}

func (s *Server) dispatch(ctx context.Context, req *toolCallRequest) (map[string]any, error) {
	switch req.Tool {
	case ToolAddOrUpdateLeadField:
		return s.addOrUpdateLeadField(req)
	case ToolFinalizeLeadDraft:
		return s.finalizeLeadDraft(ctx, req)
	case ToolGetMissingFields:
		registry := s.proc.Registry()
		return map[string]any{
			"draft_id": req.DraftID,
			"missing":  registry.MissingRequiredFields(req.DraftID),
		}, nil
	case ToolGetDraftSummary:
		export, ok := s.proc.Registry().ExportJSON(req.DraftID)
		if !ok {
			return nil, &toolFailure{message: "draft not found", code: "draft_not_found"}
		}
		return map[string]any{"draft": json.RawMessage(export)}, nil
	case ToolGenerateRecap:
		return s.generateRecap(req)
	default:
		return nil, &toolFailure{message: "unknown tool: " + req.Tool, code: "unknown_tool"}
	}
}

// addOrUpdateLeadField accepts either the voice platform's {field, value}
// argument shape or a whole fragment object, and merges it into the draft.
// A missing draft id starts a fresh draft.
func (s *Server) addOrUpdateLeadField(req *toolCallRequest) (map[string]any, error) {
	fragment := req.Args
	if field, ok := req.Args["field"].(string); ok && field != "" {
		fragment = map[string]any{field: req.Args["value"]}
	}
	if len(fragment) == 0 {
		return nil, &toolFailure{message: "no fields in args", code: "empty_fragment"}
	}

	draftID := req.DraftID
	if draftID == "" {
		draftID = uuid.NewString()
	}

	registry := s.proc.Registry()
	d := registry.AcceptFragment(draftID, req.SessionID, fragment)

	return map[string]any{
		"draft_id":         d.ID,
		"total_keys":       d.TotalKeys,
		"missing_required": registry.MissingRequiredFields(d.ID),
	}, nil
}

func (s *Server) finalizeLeadDraft(ctx context.Context, req *toolCallRequest) (map[string]any, error) {
	persona, _ := req.Args["persona"].(string)
	if persona == "" {
		persona = "professional"
	}

	outcome, err := s.proc.FinalizeLead(ctx, req.DraftID, req.SessionID, persona)
	if err != nil {
		var vErr *lead.ValidationError
		if errors.As(err, &vErr) {
			return nil, &toolFailure{message: vErr.Error(), code: "validation_failed"}
		}
		return nil, err
	}
	if outcome == nil {
		return nil, &toolFailure{message: "draft not found", code: "draft_not_found"}
	}

	meta := map[string]any{
		"final_data":     outcome.FinalData,
		"unknown_fields": outcome.UnknownFields,
		"email_subject":  outcome.Email.Subject,
	}
	if outcome.LeadID != uuid.Nil {
		meta["lead_id"] = outcome.LeadID.String()
	}
	return meta, nil
}

// generateRecap summarizes either the explicitly named drafts or every draft
// in the session.
func (s *Server) generateRecap(req *toolCallRequest) (map[string]any, error) {
	registry := s.proc.Registry()

	var leads []map[string]any
	if raw, ok := req.Args["draft_ids"].([]any); ok && len(raw) > 0 {
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			if id, ok := v.(string); ok {
				ids = append(ids, id)
			}
		}
		leads = registry.MergeFragments(ids)
	} else {
		for _, d := range registry.SessionDrafts(req.SessionID) {
			leads = append(leads, d.Fragments)
		}
	}

	return map[string]any{
		"recap":      s.proc.Tracker().Recap(leads),
		"lead_count": len(leads),
	}, nil
}
