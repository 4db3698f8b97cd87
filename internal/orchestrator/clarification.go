package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devforge/internal/memory"
	"devforge/internal/types"
)

// ErrClarificationNotFound marks a response submitted for an unknown or
// already consumed interaction id.
var ErrClarificationNotFound = errors.New("clarification request not found")

const followUpConfidence = 0.8

// SubmitClarificationResponse applies the user's answers to the suspended
// task behind interactionID. When the refined requirements raise follow-up
// questions the task suspends again under a new chained interaction id;
// otherwise the original task resumes and runs through its normal gate.
func (o *Orchestrator) SubmitClarificationResponse(ctx context.Context, interactionID string, responses []string) (*Outcome, error) {
	req, err := o.memory.GetClarificationRequest(ctx, interactionID)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClarificationNotFound, interactionID)
		}
		return nil, fmt.Errorf("load clarification request: %w", err)
	}

	updatedReq := req.Requirements
	updatedCtx := &types.ProjectContext{}
	if req.ProjectContext != nil {
		clone := *req.ProjectContext
		updatedCtx = &clone
	}

	for i, question := range req.Questions {
		if i >= len(responses) {
			break
		}
		answer := strings.TrimSpace(responses[i])
		if answer == "" {
			continue
		}
		switch req.Kind {
		case types.TaskCreation, types.TaskExtension:
			updatedReq = o.clarifier.ProcessResponse(updatedReq, question, answer)
		case types.TaskAnalysis:
			switch {
			case strings.Contains(question, "focus"):
				updatedCtx.AnalysisFocus = answer
			case strings.Contains(question, "concern"):
				updatedCtx.Concerns = answer
			case strings.Contains(question, "goal"):
				updatedCtx.AnalysisGoal = answer
			}
		}
	}

	if req.Kind == types.TaskCreation || req.Kind == types.TaskExtension {
		followUps := o.clarifier.FollowUpQuestions(updatedReq)
		if len(followUps) > 0 {
			followID := uuid.NewString()
			record := types.ClarificationRequest{
				ID:                    followID,
				Kind:                  req.Kind,
				OriginalInteractionID: interactionID,
				Requirements:          updatedReq,
				Files:                 req.Files,
				ProjectContext:        updatedCtx,
				Questions:             followUps,
				IsFollowUp:            true,
				Timestamp:             time.Now().UTC(),
			}
			if err := o.memory.PutClarificationRequest(ctx, record); err != nil {
				return nil, fmt.Errorf("store follow-up request: %w", err)
			}
			o.events.Publish(Event{
				Type:          EventClarificationFollowUp,
				Kind:          string(req.Kind),
				InteractionID: followID,
				Questions:     followUps,
			})
			return &Outcome{
				InteractionID:      followID,
				NeedsClarification: true,
				Questions:          followUps,
				IsFollowUp:         true,
				Confidence:         followUpConfidence,
			}, nil
		}
	}

	if err := o.memory.PutClarificationResponse(ctx, types.ClarificationResponse{
		InteractionID:         interactionID,
		Responses:             responses,
		UpdatedRequirements:   updatedReq,
		UpdatedProjectContext: updatedCtx,
		Timestamp:             time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("store clarification response: %w", err)
	}
	o.events.Publish(Event{
		Type:          EventClarificationResolved,
		Kind:          string(req.Kind),
		InteractionID: interactionID,
	})

	switch req.Kind {
	case types.TaskCreation:
		return o.CreateProgram(ctx, updatedReq, updatedCtx)
	case types.TaskAnalysis:
		return o.AnalyzeCode(ctx, req.Files, updatedCtx)
	case types.TaskExtension:
		return o.ExtendProject(ctx, req.Files, updatedReq, updatedCtx)
	}
	return nil, fmt.Errorf("clarification request %s has unknown kind %q", interactionID, req.Kind)
}
