// Package draft accumulates partial lead fragments arriving in arbitrary
// order and granularity, and reconciles them into a schema-known record on
// finalization.
package draft

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/tami/internal/lead"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

// Draft is an in-progress lead keyed by an opaque caller-supplied id. The
// fragments map has no fixed shape: unknown keys are first-class data, not an
// error.
type Draft struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"sessionId"`
	Fragments   map[string]any `json:"fragments"`
	LastUpdated time.Time      `json:"lastUpdated"`
	TotalKeys   int            `json:"totalKeys"`
}

// FinalizeResult partitions a draft's fragments into the schema-known
// allowlist and everything else.
type FinalizeResult struct {
	FinalData     map[string]any `json:"finalData"`
	UnknownFields map[string]any `json:"unknownFields"`
}

// Registry owns the keyed draft store. Each instance is independent so tests
// and multi-tenant hosts never leak drafts into each other.
type Registry struct {
	mu      sync.Mutex
	drafts  map[string]*Draft
	emitter telemetry.Emitter
	now     func() time.Time
}

func NewRegistry(em telemetry.Emitter) *Registry {
	if em == nil {
		em = telemetry.Nop{}
	}
	return &Registry{
		drafts:  make(map[string]*Draft),
		emitter: em,
		now:     time.Now,
	}
}

// AcceptFragment shallow-merges a fragment into the draft, creating it on
// first sight. A later fragment's top-level key fully replaces an earlier
// value; nested objects are never deep-merged. Returns the updated draft.
func (r *Registry) AcceptFragment(draftID, sessionID string, fragment map[string]any) Draft {
	keys := make([]string, 0, len(fragment))
	for k := range fragment {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	size := 0
	if b, err := json.Marshal(fragment); err == nil {
		size = len(b)
	}
	r.emitter.Emit(telemetry.FragmentReceived(size, keys))

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drafts[draftID]
	if !ok {
		d = &Draft{
			ID:        draftID,
			SessionID: sessionID,
			Fragments: make(map[string]any),
		}
		r.drafts[draftID] = d
	}

	for k, v := range fragment {
		d.Fragments[k] = v
	}
	d.LastUpdated = r.now()
	d.TotalKeys = len(d.Fragments)

	return snapshot(d)
}

// Get returns a copy of the draft, or nil when absent. Absence is a normal
// outcome (expired or already finalized), never an error.
func (r *Registry) Get(draftID string) *Draft {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drafts[draftID]
	if !ok {
		return nil
	}
	s := snapshot(d)
	return &s
}

// SessionDrafts returns every draft carrying the given session id. A linear
// scan is fine at single-digit concurrent sessions.
func (r *Registry) SessionDrafts(sessionID string) []Draft {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Draft
	for _, d := range r.drafts {
		if d.SessionID == sessionID {
			out = append(out, snapshot(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastUpdated.Before(out[j].LastUpdated) })
	return out
}

// MissingRequiredFields reports which required lead fields the draft still
// lacks, with the composite location entry appended when neither location
// field is present. An absent draft yields an empty result.
func (r *Registry) MissingRequiredFields(draftID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drafts[draftID]
	if !ok {
		return nil
	}
	return missingFields(d.Fragments)
}

func missingFields(fragments map[string]any) []string {
	var missing []string
	for _, field := range lead.RequiredFields {
		if !lead.Truthy(fragments[field]) {
			missing = append(missing, field)
		}
	}
	if !lead.Truthy(fragments["loadingLocation"]) && !lead.Truthy(fragments["deliveryLocation"]) {
		missing = append(missing, lead.LocationRequirement)
	}
	return missing
}

// Finalize partitions the draft's fragments into schema-known and unknown
// fields and deletes the draft. Single-shot: a second call for the same id
// returns nil.
func (r *Registry) Finalize(draftID string) *FinalizeResult {
	r.mu.Lock()
	d, ok := r.drafts[draftID]
	if ok {
		delete(r.drafts, draftID)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	r.emitter.Emit(telemetry.DraftFinalized(d.TotalKeys))

	finalData := make(map[string]any)
	unknown := make(map[string]any)
	for k, v := range d.Fragments {
		if lead.KnownFields[k] {
			finalData[k] = v
		} else {
			unknown[k] = v
		}
	}

	return &FinalizeResult{FinalData: finalData, UnknownFields: unknown}
}

// ExportJSON serializes the draft plus its missing-required diagnostics.
// Read-only; returns ok=false when the draft is absent.
func (r *Registry) ExportJSON(draftID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.drafts[draftID]
	if !ok {
		return "", false
	}

	b, err := json.MarshalIndent(map[string]any{
		"id":              d.ID,
		"sessionId":       d.SessionID,
		"fragments":       d.Fragments,
		"lastUpdated":     d.LastUpdated.UTC().Format("2006-01-02T15:04:05.000Z"),
		"totalKeys":       d.TotalKeys,
		"missingRequired": missingFields(d.Fragments),
	}, "", "  ")
	if err != nil {
		return "", false
	}
	return string(b), true
}

// MergeFragments returns the fragment maps of the given drafts in input
// order, silently skipping ids that no longer exist.
func (r *Registry) MergeFragments(draftIDs []string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]map[string]any, 0, len(draftIDs))
	for _, id := range draftIDs {
		if d, ok := r.drafts[id]; ok {
			out = append(out, copyFragments(d.Fragments))
		}
	}
	return out
}

// CleanupOlderThan deletes every draft not updated within maxAge and returns
// how many were removed. Zero age sweeps everything.
func (r *Registry) CleanupOlderThan(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	cleaned := 0
	for id, d := range r.drafts {
		if d.LastUpdated.Before(cutoff) {
			delete(r.drafts, id)
			cleaned++
		}
	}
	return cleaned
}

// Len reports how many drafts are currently held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}

func snapshot(d *Draft) Draft {
	return Draft{
		ID:          d.ID,
		SessionID:   d.SessionID,
		Fragments:   copyFragments(d.Fragments),
		LastUpdated: d.LastUpdated,
		TotalKeys:   d.TotalKeys,
	}
}

func copyFragments(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
