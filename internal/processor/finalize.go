package processor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/tami/internal/bus"
	"github.com/MikeSquared-Agency/tami/internal/email"
	"github.com/MikeSquared-Agency/tami/internal/lead"
	"github.com/MikeSquared-Agency/tami/internal/telemetry"
)

// FinalizeOutcome is the result of a successful finalize pipeline run.
type FinalizeOutcome struct {
	LeadID        uuid.UUID
	FinalData     map[string]any
	UnknownFields map[string]any
	Email         email.Message
}

// FinalizeLead runs the reconciliation pipeline for one draft: partition into
// known/unknown fields, fold unknowns into the notes, normalize free-text
// price and quantity, validate against the Lead schema, persist and render
// the notification email.
//
// An absent draft returns (nil, nil): finalize is single-shot and calling it
// again is a normal outcome, not an error. The draft is consumed even when
// validation fails; the caller surfaces the validation error to the trader.
func (p *Processor) FinalizeLead(ctx context.Context, draftID, sessionID, persona string) (*FinalizeOutcome, error) {
	res := p.registry.Finalize(draftID)
	if res == nil {
		return nil, nil
	}

	finalData := lead.PreserveUnknownFields(res.FinalData, res.UnknownFields, p.emitter)
	finalData = lead.NormalizePayload(finalData)

	if err := lead.Validate(finalData); err != nil {
		return nil, fmt.Errorf("finalize draft %s: %w", draftID, err)
	}

	outcome := &FinalizeOutcome{
		FinalData:     finalData,
		UnknownFields: res.UnknownFields,
	}

	if p.store != nil {
		id, err := p.store.WriteLead(ctx, sessionID, persona, p.strategy.Strategy, finalData)
		if err != nil {
			return nil, fmt.Errorf("persist lead: %w", err)
		}
		outcome.LeadID = id
		p.emitter.Emit(telemetry.LeadSaved(id.String()))
	}

	outcome.Email = email.Build(finalData, persona, p.strategy.EmailTemplate)
	if p.strategy.LiveEmailsEnabled {
		p.logger.Info("lead email ready", "subject", outcome.Email.Subject, "session_id", sessionID)
	} else {
		p.logger.Debug("live emails disabled, skipping delivery", "session_id", sessionID)
	}

	p.publish(bus.SubjectLeadFinalized, map[string]any{
		"lead_id":      outcome.LeadID.String(),
		"session_id":   sessionID,
		"known_keys":   len(finalData),
		"unknown_keys": len(res.UnknownFields),
	})

	return outcome, nil
}
