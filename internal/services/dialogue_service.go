package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"wayfarer/internal/composer"
	"wayfarer/internal/dialogue"
	"wayfarer/internal/logging"
	"wayfarer/internal/models"
	"wayfarer/internal/nlu"
	"wayfarer/internal/rag"
	"wayfarer/internal/resolver"
	"wayfarer/internal/tools"
)

// DialogueService orchestrates one turn end to end: classify, resolve,
// collect slots, dispatch, compose. It is the only component that mutates
// conversation state, and it does so transactionally per turn.
type DialogueService struct {
	conversations *ConversationService
	classifier    nlu.Classifier
	resolver      *resolver.Resolver
	registry      *tools.Registry
	pipeline      *rag.Pipeline
	composer      *composer.Composer
	schemas       *models.SchemaTable
	transcripts   *TranscriptService

	maxClarify        int
	turnTimeout       time.Duration
	backgroundIntents map[string]bool
}

// DialogueDeps bundles the orchestrator's collaborators.
type DialogueDeps struct {
	Conversations *ConversationService
	Classifier    nlu.Classifier
	Resolver      *resolver.Resolver
	Registry      *tools.Registry
	Pipeline      *rag.Pipeline
	Composer      *composer.Composer
	Schemas       *models.SchemaTable
	Transcripts   *TranscriptService

	MaxClarify        int
	TurnTimeout       time.Duration
	BackgroundIntents []string
}

// NewDialogueService creates the turn orchestrator.
func NewDialogueService(deps DialogueDeps) *DialogueService {
	background := make(map[string]bool, len(deps.BackgroundIntents))
	for _, intent := range deps.BackgroundIntents {
		background[intent] = true
	}
	return &DialogueService{
		conversations:     deps.Conversations,
		classifier:        deps.Classifier,
		resolver:          deps.Resolver,
		registry:          deps.Registry,
		pipeline:          deps.Pipeline,
		composer:          deps.Composer,
		schemas:           deps.Schemas,
		transcripts:       deps.Transcripts,
		maxClarify:        deps.MaxClarify,
		turnTimeout:       deps.TurnTimeout,
		backgroundIntents: background,
	}
}

// HandleMessage processes one user message and returns the replies for it.
//
// The conversation is snapshotted before any mutation. If the turn fails,
// the snapshot is restored and an apology returned, so a broken turn never
// corrupts slots collected by earlier ones.
func (s *DialogueService) HandleMessage(ctx context.Context, sessionID, message string) (*models.ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	conv, release := s.conversations.Acquire(sessionID)
	defer release()

	snapshot := conv.Snapshot()
	conv.Touch()

	turn, err := s.classifier.Parse(ctx, message)
	if err != nil {
		conv.Restore(snapshot)
		logging.WithConversation(sessionID).Error("NLU classification failed", "error", err)
		return s.respond(conv, "", []string{s.composer.Apology()}, models.ErrNone), nil
	}

	logger := logging.WithTurn(sessionID, turn.ID, turn.Intent)

	messages, kind, err := s.processTurn(ctx, logger, conv, turn)
	if err != nil {
		conv.Restore(snapshot)
		logger.Error("turn failed, state rolled back", "error", err)
		messages = []string{s.composer.Apology()}
		kind = models.ErrNone
	}

	s.transcripts.Append(ctx, sessionID, turn, messages)
	return s.respond(conv, turn.ID, messages, kind), nil
}

func (s *DialogueService) respond(conv *dialogue.Conversation, turnID string, messages []string, kind models.ErrorKind) *models.ChatResponse {
	return &models.ChatResponse{
		SessionID: conv.ID,
		TurnID:    turnID,
		Messages:  messages,
		State:     string(conv.State),
		ErrorKind: string(kind),
	}
}

func (s *DialogueService) processTurn(ctx context.Context, logger *slog.Logger, conv *dialogue.Conversation, turn *models.Turn) ([]string, models.ErrorKind, error) {
	// A pending clarification intercepts the turn before intent handling:
	// the reply is first read as an answer to the open question.
	if conv.State == dialogue.StateAwaitingClarification {
		if messages, kind, handled, err := s.handleClarificationReply(ctx, logger, conv, turn); handled {
			return messages, kind, err
		}
	}

	if err := s.applyIntent(logger, conv, turn); err != nil {
		return []string{s.composer.Apology()}, models.ErrUnknownIntent, nil
	}

	// Background intents answer immediately against their own schema and
	// leave the active intent's collection where it was.
	if s.backgroundIntents[turn.Intent] && turn.Intent != conv.ActiveIntent {
		if bg, ok := s.schemas.Get(turn.Intent); ok {
			return s.dispatch(ctx, logger, conv, bg, turn)
		}
	}

	schema, ok := s.schemas.Get(conv.ActiveIntent)
	if !ok {
		// No active intent and the new turn didn't bring one either.
		logger.Info("no intent to act on")
		return []string{s.composer.Apology()}, models.ErrUnknownIntent, nil
	}

	// Merge this turn's entities into the slot store.
	if messages, pending := s.mergeEntities(logger, conv, schema, turn.Entities); pending {
		return messages, models.ErrNone, nil
	}

	if missing := conv.Slots.MissingRequired(schema); len(missing) > 0 {
		conv.State = dialogue.Transition(conv.State, dialogue.StateCollectingSlots)
		def, _ := schema.SlotNamed(missing[0])
		logger.Info("asking for missing slot", "slot", missing[0])
		return []string{s.composer.AskSlot(def)}, models.ErrNone, nil
	}

	return s.dispatch(ctx, logger, conv, schema, turn)
}

// applyIntent reconciles the turn's classified intent with the active one.
// Background intents answer inline without disturbing an intent that is
// mid-collection; any other new intent switches context.
func (s *DialogueService) applyIntent(logger *slog.Logger, conv *dialogue.Conversation, turn *models.Turn) error {
	if _, known := s.schemas.Get(turn.Intent); !known {
		if conv.ActiveIntent == "" {
			logger.Warn("unknown intent with no active conversation", "intent", turn.Intent)
			return fmt.Errorf("unknown intent %q", turn.Intent)
		}
		// Unknown label mid-conversation: treat the turn as slot
		// filling for the active intent.
		return nil
	}

	switch {
	case conv.ActiveIntent == "":
		conv.ActiveIntent = turn.Intent
		conv.State = dialogue.Transition(conv.State, dialogue.StateCollectingSlots)
	case turn.Intent != conv.ActiveIntent:
		if s.backgroundIntents[turn.Intent] &&
			(conv.State == dialogue.StateCollectingSlots || conv.State == dialogue.StateAwaitingClarification) {
			// Answered inline by dispatch; the active intent, its slots
			// and any open clarification stay untouched for the next turn.
			logger.Info("background intent answered inline", "active", conv.ActiveIntent)
			return nil
		}
		logger.Info("context switch", "from", conv.ActiveIntent, "to", turn.Intent)
		conv.SwitchIntent(turn.Intent)
	}
	return nil
}

// mergeEntities resolves the turn's entities and fills slots. Returns
// pending=true with a clarification question when an entity is ambiguous;
// only one clarification is open at a time, first ambiguity wins.
func (s *DialogueService) mergeEntities(logger *slog.Logger, conv *dialogue.Conversation, schema *models.IntentSchema, entities []models.Entity) ([]string, bool) {
	for _, entity := range entities {
		slotName, ok := s.slotFor(conv, schema, entity)
		if !ok {
			logger.Debug("no slot accepts entity", "entity_type", entity.Type)
			continue
		}

		res := s.resolver.Resolve(entity)
		switch res.Outcome {
		case resolver.OutcomeResolved:
			conv.Slots.Fill(slotName, entity.Type, res.Candidate.Label, res.Candidate.ID)
		case resolver.OutcomeUnresolved:
			// Untyped values (dates, modes, free text) carry no
			// candidate list; the surface form is the value.
			conv.Slots.Fill(slotName, entity.Type, entity.Surface, "")
		case resolver.OutcomeNeedsClarification:
			conv.BeginClarification(slotName, entity.Type, entity.Surface, res.Candidates)
			logger.Info("entity ambiguous, asking for clarification",
				"slot", slotName, "candidates", len(res.Candidates))
			return []string{s.composer.Clarify(entity.Surface, res.Candidates)}, true
		}
	}
	return nil, false
}

// slotFor picks the slot an entity should fill: the first unfilled slot of
// the entity's type in schema order, else the first matching slot at all
// (last-write-wins overwrite).
func (s *DialogueService) slotFor(conv *dialogue.Conversation, schema *models.IntentSchema, entity models.Entity) (string, bool) {
	var fallback string
	for _, def := range schema.Slots() {
		if def.Type != entity.Type {
			continue
		}
		if !conv.Slots.Filled(def.Name) {
			return def.Name, true
		}
		if fallback == "" {
			fallback = def.Name
		}
	}
	return fallback, fallback != ""
}

// handleClarificationReply tries to read the turn as an answer to the open
// clarification question, by ordinal ("2") or by naming a candidate.
// handled=false means the turn is something else (likely a context switch)
// and normal intent processing should take over.
func (s *DialogueService) handleClarificationReply(ctx context.Context, logger *slog.Logger, conv *dialogue.Conversation, turn *models.Turn) ([]string, models.ErrorKind, bool, error) {
	if picked := matchCandidate(turn.Text, conv.PendingSurface, conv.PendingCandidates); picked != nil {
		conv.Slots.Fill(conv.PendingSlot, conv.PendingSlotType, picked.Label, picked.ID)
		logger.Info("clarification answered", "slot", conv.PendingSlot, "candidate", picked.ID)
		conv.EndClarification()
		conv.State = dialogue.Transition(conv.State, dialogue.StateCollectingSlots)

		schema, ok := s.schemas.Get(conv.ActiveIntent)
		if !ok {
			return []string{s.composer.Apology()}, models.ErrUnknownIntent, true, nil
		}
		if missing := conv.Slots.MissingRequired(schema); len(missing) > 0 {
			def, _ := schema.SlotNamed(missing[0])
			return []string{s.composer.AskSlot(def)}, models.ErrNone, true, nil
		}
		messages, kind, err := s.dispatch(ctx, logger, conv, schema, turn)
		return messages, kind, true, err
	}

	// A recognizable new intent abandons the clarification.
	if _, known := s.schemas.Get(turn.Intent); known && turn.Intent != conv.ActiveIntent {
		return nil, models.ErrNone, false, nil
	}

	conv.ClarifyAttempts++
	if conv.ClarifyAttempts >= s.maxClarify {
		logger.Warn("clarification exhausted", "slot", conv.PendingSlot, "attempts", conv.ClarifyAttempts)
		slotName := conv.PendingSlot
		conv.Slots.Clear(slotName)
		conv.EndClarification()
		conv.ActiveIntent = ""
		conv.State = dialogue.Transition(conv.State, dialogue.StateAwaitingIntent)
		return []string{s.composer.ClarificationExhausted(slotName)}, models.ErrClarificationExhausted, true, nil
	}

	conv.State = dialogue.Transition(conv.State, dialogue.StateAwaitingClarification)
	return []string{s.composer.Clarify(conv.PendingSurface, conv.PendingCandidates)}, models.ErrNone, true, nil
}

// dispatch runs the ready intent: either the retrieval pipeline or the
// capability the schema targets. The conversation ends the turn back in
// awaiting_intent with its filled slots intact for follow-ups.
func (s *DialogueService) dispatch(ctx context.Context, logger *slog.Logger, conv *dialogue.Conversation, schema *models.IntentSchema, turn *models.Turn) ([]string, models.ErrorKind, error) {
	// Background answers do not move the state machine; the active
	// intent is still mid-collection.
	background := s.backgroundIntents[turn.Intent] && turn.Intent != conv.ActiveIntent
	if !background {
		conv.State = dialogue.Transition(conv.State, dialogue.StateReadyToDispatch)
		conv.State = dialogue.Transition(conv.State, dialogue.StateResponding)
		defer func() {
			conv.State = dialogue.Transition(conv.State, dialogue.StateAwaitingIntent)
		}()
	}

	if schema.Target == models.TargetKnowledge {
		result, err := s.pipeline.Answer(ctx, turn.Text)
		if err != nil {
			return nil, models.ErrNone, fmt.Errorf("retrieval failed: %w", err)
		}
		logger.Info("retrieval answered", "grounded", result.Grounded, "sources", len(result.Context.Chunks))
		return []string{s.composer.RetrievalAnswer(result)}, result.ErrorKind, nil
	}

	cache := tools.NewTurnCache(s.registry)
	result := cache.Dispatch(ctx, schema, conv.Slots.Values())
	if !result.Success {
		logger.Warn("tool dispatch failed", "tool", result.Tool, "kind", string(result.ErrorKind))
		return []string{s.composer.ToolFailure(result)}, result.ErrorKind, nil
	}

	logger.Info("tool dispatched", "tool", result.Tool)
	return s.composer.ToolSuccess(result), models.ErrNone, nil
}

// matchCandidate reads a clarification reply as an ordinal or a candidate
// name. Matching is case-insensitive and tolerates the user quoting only
// part of the label ("the one in Ontario"). A name match must add something
// the ambiguous surface didn't: a reply that just repeats the surface, or
// that matches more than one candidate, picks nothing and the question is
// asked again.
func matchCandidate(text, surface string, candidates []models.Candidate) *models.Candidate {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	if trimmed == "" {
		return nil
	}

	if n, err := strconv.Atoi(strings.TrimSuffix(trimmed, ".")); err == nil {
		if n >= 1 && n <= len(candidates) {
			return &candidates[n-1]
		}
		return nil
	}

	// Regions always disambiguate.
	for i := range candidates {
		region := strings.ToLower(candidates[i].Region)
		if region != "" && strings.Contains(trimmed, region) {
			return &candidates[i]
		}
	}

	var hit *models.Candidate
	for i := range candidates {
		label := strings.ToLower(candidates[i].Label)
		if label == strings.TrimSpace(strings.ToLower(surface)) {
			continue
		}
		if strings.Contains(trimmed, label) {
			if hit != nil {
				return nil
			}
			hit = &candidates[i]
		}
	}
	return hit
}
