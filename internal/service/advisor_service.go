package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"welding-recommender-be/internal/constant"
	"welding-recommender-be/internal/dto"
	"welding-recommender-be/internal/entity"
	"welding-recommender-be/internal/pkg/logger"
	"welding-recommender-be/internal/repository/contract"
	"welding-recommender-be/pkg/events"
	"welding-recommender-be/pkg/extract"
	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/guide/applicability"
	"welding-recommender-be/pkg/guide/compound"
	"welding-recommender-be/pkg/guide/sequence"
	"welding-recommender-be/pkg/guide/skip"
	natspkg "welding-recommender-be/pkg/nats"
	"welding-recommender-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IAdvisorService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	SendMessage(ctx context.Context, sessionId string, req *dto.SendMessageRequest) (*dto.TurnResponse, error)
	Select(ctx context.Context, sessionId string, req *dto.SelectRequest) (*dto.TurnResponse, error)
	Advance(ctx context.Context, sessionId string, req *dto.AdvanceRequest) (*dto.TurnResponse, error)
	Reset(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	Finalize(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	Transcript(ctx context.Context, sessionId string) (*dto.TranscriptResponse, error)
}

type advisorService struct {
	rulebook      *guide.Rulebook
	machine       *sequence.Machine
	engine        *skip.Engine
	compound      *compound.Handler
	applicability *applicability.Resolver
	extractor     extract.Extractor

	sessions    contract.SessionStore
	archiveRepo contract.SessionArchiveRepository
	recordRepo  contract.TransitionRecordRepository

	pubSub        *gochannel.GoChannel
	natsPublisher *natspkg.Publisher
	logger        logger.ILogger

	// One mutex per live session; a turn is read-modify-write on the
	// whole session record and turns on the same session must not
	// interleave.
	locks sync.Map
}

func NewAdvisorService(
	rulebook *guide.Rulebook,
	machine *sequence.Machine,
	engine *skip.Engine,
	compoundHandler *compound.Handler,
	resolver *applicability.Resolver,
	extractor extract.Extractor,
	sessions contract.SessionStore,
	archiveRepo contract.SessionArchiveRepository,
	recordRepo contract.TransitionRecordRepository,
	pubSub *gochannel.GoChannel,
	natsPublisher *natspkg.Publisher,
	log logger.ILogger,
) IAdvisorService {
	return &advisorService{
		rulebook:      rulebook,
		machine:       machine,
		engine:        engine,
		compound:      compoundHandler,
		applicability: resolver,
		extractor:     extractor,
		sessions:      sessions,
		archiveRepo:   archiveRepo,
		recordRepo:    recordRepo,
		pubSub:        pubSub,
		natsPublisher: natsPublisher,
		logger:        log,
	}
}

func (s *advisorService) lock(sessionId string) func() {
	v, _ := s.locks.LoadOrStore(sessionId, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *advisorService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	language := req.Language
	if language == "" {
		language = "en"
	}

	sess := store.NewSession(uuid.NewString(), language, s.rulebook.Root())
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.publishLifecycle(ctx, events.TypeSessionStarted, sess.ID, map[string]interface{}{
		"language": language,
	})

	s.logger.Info("ADVISOR", "Session created", map[string]interface{}{
		"session_id": sess.ID,
		"language":   language,
	})
	return toSessionResponse(sess), nil
}

func (s *advisorService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	return toSessionResponse(sess), nil
}

// SendMessage runs one conversational turn: extract the specifications
// carried by the utterance, then route it through the compound handler
// when it names several categories, or through the shared
// search-then-skip path when it names one or none.
func (s *advisorService) SendMessage(ctx context.Context, sessionId string, req *dto.SendMessageRequest) (*dto.TurnResponse, error) {
	unlock := s.lock(sessionId)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, fiber.NewError(fiber.StatusConflict, "session is finalized")
	}

	sess.AppendTurn(constant.TurnRoleUser, req.Message)

	update, err := s.extractor.Extract(ctx, req.Message, sess.Requirements)
	if err != nil {
		return nil, err
	}

	if ok, reason := s.compound.Validate(update, sess.Selections); !ok {
		sess.AppendTurn(constant.TurnRoleAdvisor, reason)
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return &dto.TurnResponse{
			SessionId: sess.ID,
			Current:   string(sess.Current),
			Results:   []dto.ProductDTO{},
			Message:   reason,
		}, nil
	}

	sess.Requirements.Merge(update)

	if s.compound.Detect(update) {
		return s.processCompound(ctx, sess)
	}

	// Single-category request: jump the pointer to the named category.
	// No category named means the message refines the current one.
	prev := sess.Current
	target := sess.Current
	for c := range update {
		if update.Present(c) {
			if _, ok := s.rulebook.Rule(c); ok && !s.rulebook.Terminal(c) {
				target = c
			}
		}
	}
	sess.Current = target

	result, err := s.engine.SearchAndResolve(ctx, sess, target)
	if err != nil {
		return nil, err
	}

	transitions := result.Events
	if prev != target {
		transitions = append([]guide.TransitionEvent{moveEvent(sess.ID, prev, target)}, transitions...)
	}
	s.publishTransitions(sess, transitions)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return s.turnResponse(sess, result, transitions), nil
}

func (s *advisorService) processCompound(ctx context.Context, sess *store.Session) (*dto.TurnResponse, error) {
	outcome, err := s.compound.Process(ctx, sess)
	if err != nil {
		return nil, err
	}

	// A consumed specification should not re-trigger searches on later
	// turns once its category is settled.
	for _, oc := range outcome.PerCategory {
		if oc.AutoSelected != nil {
			delete(sess.Requirements, oc.Category)
		}
	}

	s.publishTransitions(sess, outcome.Events)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	resp := &dto.TurnResponse{
		SessionId:   sess.ID,
		Current:     string(sess.Current),
		Results:     []dto.ProductDTO{},
		Transitions: dto.FromTransitions(outcome.Events),
		Compound:    dto.FromCompound(outcome.PerCategory),
	}
	for _, oc := range outcome.PerCategory {
		if oc.Category == outcome.Next {
			resp.Results = dto.FromProducts(oc.Candidates)
		}
	}
	return resp, nil
}

// Select records a pick for the session's current category and, for
// single-select categories, moves on through the shared search-then-skip
// path. Multi-select categories keep the pointer in place until the user
// signals done.
func (s *advisorService) Select(ctx context.Context, sessionId string, req *dto.SelectRequest) (*dto.TurnResponse, error) {
	unlock := s.lock(sessionId)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, fiber.NewError(fiber.StatusConflict, "session is finalized")
	}

	category, ok := guide.ParseCategory(req.Category)
	if !ok {
		return nil, fiber.NewError(fiber.StatusBadRequest, "unknown category: "+req.Category)
	}
	rule, ok := s.rulebook.Rule(category)
	if !ok || s.rulebook.Terminal(category) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "category cannot be selected: "+req.Category)
	}

	item := guide.SelectedItem{ID: req.ProductId, Name: req.ProductName}
	sess.Selections.Select(category, item, rule.MultiSelect)
	delete(sess.Requirements, category)

	// The root pick fixes which downstream categories apply at all.
	if category == s.rulebook.Root() {
		sess.Selections.Applicability = s.applicability.Resolve(req.ProductId)
	}

	s.logger.Info("ADVISOR", "Product selected", map[string]interface{}{
		"session_id": sess.ID,
		"category":   string(category),
		"product_id": req.ProductId,
	})

	if rule.MultiSelect {
		if err := s.sessions.Save(ctx, sess); err != nil {
			return nil, err
		}
		return &dto.TurnResponse{
			SessionId: sess.ID,
			Current:   string(sess.Current),
			Results:   []dto.ProductDTO{},
		}, nil
	}

	prev := sess.Current
	next, err := s.machine.Next(category, sess.Selections, sess.Selections.Applicability, sess.Done)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.SearchAndResolve(ctx, sess, next)
	if err != nil {
		return nil, err
	}

	transitions := append([]guide.TransitionEvent{moveEvent(sess.ID, prev, next)}, result.Events...)
	s.publishTransitions(sess, transitions)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return s.turnResponse(sess, result, transitions), nil
}

// Advance handles the explicit next/skip/done signals. A mandatory
// category without a selection refuses to move; "done", and "skip" on a
// multi-select category, close the category out before moving.
func (s *advisorService) Advance(ctx context.Context, sessionId string, req *dto.AdvanceRequest) (*dto.TurnResponse, error) {
	unlock := s.lock(sessionId)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return nil, fiber.NewError(fiber.StatusConflict, "session is finalized")
	}

	current := sess.Current
	rule, ok := s.rulebook.Rule(current)
	if ok && rule.Mandatory && !sess.Selections.Has(current) {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			"a "+current.Display()+" is required before continuing")
	}

	// Done closes the category out. So does an explicit skip at a
	// multi-select category: a passed-over accessory step must not
	// resurface as current on a later forward scan.
	if req.Signal == constant.AdvanceSignalDone ||
		(req.Signal == constant.AdvanceSignalSkip && ok && rule.MultiSelect) {
		sess.Done[current] = true
	}

	next, err := s.machine.Next(current, sess.Selections, sess.Selections.Applicability, sess.Done)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.SearchAndResolve(ctx, sess, next)
	if err != nil {
		return nil, err
	}

	transitions := append([]guide.TransitionEvent{moveEvent(sess.ID, current, next)}, result.Events...)
	s.publishTransitions(sess, transitions)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return s.turnResponse(sess, result, transitions), nil
}

// Reset archives the abandoned configuration and returns the session to
// its initial state under the same id.
func (s *advisorService) Reset(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	unlock := s.lock(sessionId)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	s.archive(ctx, sess, constant.ArchiveStatusReset)

	fresh := store.NewSession(sess.ID, sess.Language, s.rulebook.Root())
	fresh.CreatedAt = sess.CreatedAt
	if err := s.sessions.Save(ctx, fresh); err != nil {
		return nil, err
	}

	s.publishLifecycle(ctx, events.TypeSessionReset, sess.ID, nil)
	return toSessionResponse(fresh), nil
}

// Finalize closes the session. The mandatory root must be selected; the
// rest of the sequence may legitimately be empty or skipped.
func (s *advisorService) Finalize(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	unlock := s.lock(sessionId)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if sess.Finalized {
		return toSessionResponse(sess), nil
	}
	root := s.rulebook.Root()
	if !sess.Selections.Has(root) {
		return nil, fiber.NewError(fiber.StatusBadRequest,
			"cannot finalize without a selected "+root.Display())
	}

	sess.Finalized = true
	sess.Current = guide.CategoryFinalize
	sess.UpdatedAt = time.Now()

	s.archive(ctx, sess, constant.ArchiveStatusFinalized)

	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.publishLifecycle(ctx, events.TypeSessionFinalized, sess.ID, map[string]interface{}{
		"selections": len(sess.Selections.Items),
	})
	return toSessionResponse(sess), nil
}

// Transcript returns everything recorded for a session id: rendered
// transitions and the archives of finished runs. Works for expired and
// reset sessions too, so it does not require a live session.
func (s *advisorService) Transcript(ctx context.Context, sessionId string) (*dto.TranscriptResponse, error) {
	resp := &dto.TranscriptResponse{
		SessionId:   sessionId,
		Transitions: []dto.TransitionRecordDTO{},
		Archives:    []dto.SessionArchiveDTO{},
	}

	if s.recordRepo != nil {
		records, err := s.recordRepo.FindAllBySessionId(ctx, sessionId)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			resp.Transitions = append(resp.Transitions, dto.TransitionRecordDTO{
				PreviousCategory: r.PreviousCategory,
				NewCategory:      r.NewCategory,
				Skipped:          r.Skipped,
				SkipReason:       r.SkipReason,
				Message:          r.RenderedMessage,
				CreatedAt:        r.CreatedAt,
			})
		}
	}

	if s.archiveRepo != nil {
		archives, err := s.archiveRepo.FindAllBySessionId(ctx, sessionId)
		if err != nil {
			return nil, err
		}
		for _, a := range archives {
			resp.Archives = append(resp.Archives, dto.SessionArchiveDTO{
				Status:     a.Status,
				Language:   a.Language,
				Turns:      a.Turns,
				ArchivedAt: a.ArchivedAt,
			})
		}
	}

	return resp, nil
}

func (s *advisorService) archive(ctx context.Context, sess *store.Session, status string) {
	if s.archiveRepo == nil {
		return
	}
	selections, _ := json.Marshal(sess.Selections)
	requirements, _ := json.Marshal(sess.Requirements)
	err := s.archiveRepo.Create(ctx, &entity.SessionArchive{
		Id:           uuid.New(),
		SessionId:    sess.ID,
		Language:     sess.Language,
		Status:       status,
		Selections:   string(selections),
		Requirements: string(requirements),
		Turns:        len(sess.History),
		CreatedAt:    sess.CreatedAt,
		ArchivedAt:   time.Now(),
	})
	if err != nil {
		s.logger.Error("ADVISOR", "Failed to archive session", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
}

func (s *advisorService) publishTransitions(sess *store.Session, transitions []guide.TransitionEvent) {
	if s.pubSub == nil {
		return
	}
	for _, ev := range transitions {
		payload, err := json.Marshal(dto.TransitionMessage{Event: ev, Language: sess.Language})
		if err != nil {
			continue
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		if err := s.pubSub.Publish(constant.TransitionTopic, msg); err != nil {
			s.logger.Error("ADVISOR", "Failed to publish transition", map[string]interface{}{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		}
	}
}

func (s *advisorService) publishLifecycle(ctx context.Context, eventType, sessionId string, details map[string]interface{}) {
	if s.natsPublisher == nil {
		return
	}
	if err := s.natsPublisher.Publish(ctx, events.NewSessionEvent(eventType, sessionId, details)); err != nil {
		s.logger.Warn("ADVISOR", "Failed to publish lifecycle event", map[string]interface{}{
			"session_id": sessionId,
			"event":      eventType,
			"error":      err.Error(),
		})
	}
}

func (s *advisorService) turnResponse(sess *store.Session, result *skip.Result, transitions []guide.TransitionEvent) *dto.TurnResponse {
	resp := &dto.TurnResponse{
		SessionId:   sess.ID,
		Current:     string(sess.Current),
		Results:     []dto.ProductDTO{},
		Transitions: dto.FromTransitions(transitions),
		Finalized:   sess.Finalized,
	}
	if result != nil && result.Outcome != nil {
		resp.Results = dto.FromProducts(result.Outcome.Items)
	}
	return resp
}

func moveEvent(sessionId string, prev, next guide.Category) guide.TransitionEvent {
	return guide.TransitionEvent{
		SessionID:        sessionId,
		PreviousCategory: prev,
		NewCategory:      next,
	}
}

func toSessionResponse(sess *store.Session) *dto.SessionResponse {
	selections := make([]dto.SelectionDTO, 0)
	for c, items := range sess.Selections.Items {
		for _, it := range items {
			selections = append(selections, dto.SelectionDTO{
				Category: string(c),
				Id:       it.ID,
				Name:     it.Name,
			})
		}
	}
	return &dto.SessionResponse{
		Id:         sess.ID,
		Language:   sess.Language,
		Current:    string(sess.Current),
		Selections: selections,
		Finalized:  sess.Finalized,
		CreatedAt:  sess.CreatedAt,
		UpdatedAt:  sess.UpdatedAt,
	}
}
