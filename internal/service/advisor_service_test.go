package service

import (
	"context"
	"errors"
	"testing"

	"welding-recommender-be/internal/constant"
	"welding-recommender-be/internal/dto"
	"welding-recommender-be/internal/entity"
	"welding-recommender-be/internal/repository/contract"
	"welding-recommender-be/internal/repository/memory"
	"welding-recommender-be/pkg/catalog"
	"welding-recommender-be/pkg/guide"
	"welding-recommender-be/pkg/guide/applicability"
	"welding-recommender-be/pkg/guide/compound"
	"welding-recommender-be/pkg/guide/dependency"
	"welding-recommender-be/pkg/guide/sequence"
	"welding-recommender-be/pkg/guide/skip"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeGateway struct {
	filtered   map[guide.Category][]guide.Product
	unfiltered map[guide.Category][]guide.Product
	errs       map[guide.Category]error
}

func (f *fakeGateway) Search(_ context.Context, req catalog.SearchRequest) (*guide.SearchOutcome, error) {
	if err := f.errs[req.Category]; err != nil {
		return nil, err
	}
	if !req.RequiresCompatibility {
		return &guide.SearchOutcome{Items: f.unfiltered[req.Category]}, nil
	}
	return &guide.SearchOutcome{
		Items:                  f.filtered[req.Category],
		CompatibilityValidated: true,
	}, nil
}

type fakeExtractor struct {
	byMessage map[string]guide.Requirements
}

func (f *fakeExtractor) Extract(_ context.Context, message string, _ guide.Requirements) (guide.Requirements, error) {
	if req, ok := f.byMessage[message]; ok {
		return req, nil
	}
	return guide.Requirements{}, nil
}

type fakeArchiveRepo struct {
	archives []*entity.SessionArchive
}

func (f *fakeArchiveRepo) Create(_ context.Context, a *entity.SessionArchive) error {
	f.archives = append(f.archives, a)
	return nil
}

func (f *fakeArchiveRepo) FindAllBySessionId(_ context.Context, sessionId string) ([]*entity.SessionArchive, error) {
	var out []*entity.SessionArchive
	for _, a := range f.archives {
		if a.SessionId == sessionId {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeRecordRepo struct {
	records []*entity.TransitionRecord
}

func (f *fakeRecordRepo) Create(_ context.Context, r *entity.TransitionRecord) error {
	f.records = append(f.records, r)
	return nil
}

func (f *fakeRecordRepo) FindAllBySessionId(_ context.Context, sessionId string) ([]*entity.TransitionRecord, error) {
	var out []*entity.TransitionRecord
	for _, r := range f.records {
		if r.SessionId == sessionId {
			out = append(out, r)
		}
	}
	return out, nil
}

type fixture struct {
	svc      IAdvisorService
	sessions contract.SessionStore
	archive  *fakeArchiveRepo
	records  *fakeRecordRepo
}

func newFixture(gw catalog.Gateway, extractor *fakeExtractor) *fixture {
	rb := guide.DefaultRulebook()
	machine := sequence.NewMachine(rb)
	deps := dependency.NewChecker(rb, nil)
	resolver := applicability.NewResolver(nil, nil)
	engine := skip.NewEngine(rb, machine, deps, gw, nil)
	handler := compound.NewHandler(rb, machine, deps, resolver, gw, nil)
	sessions := memory.NewSessionStore(0)
	archive := &fakeArchiveRepo{}
	records := &fakeRecordRepo{}

	svc := NewAdvisorService(
		rb,
		machine,
		engine,
		handler,
		resolver,
		extractor,
		sessions,
		archive,
		records,
		nil, // pub/sub
		nil, // nats
		nopLogger{},
	)
	return &fixture{svc: svc, sessions: sessions, archive: archive, records: records}
}

// defaultGateway models a small catalog: two power sources, no feeders
// compatible with anything, one cooler and one torch.
func defaultGateway() *fakeGateway {
	return &fakeGateway{
		unfiltered: map[guide.Category][]guide.Product{
			guide.CategoryPowerSource: {
				{ID: "ps-1", Name: "Alpha 300", Category: guide.CategoryPowerSource},
				{ID: "ps-2", Name: "Alpha 500", Category: guide.CategoryPowerSource},
			},
			guide.CategoryAccessory: {
				{ID: "acc-1", Name: "Trolley", Category: guide.CategoryAccessory},
			},
		},
		filtered: map[guide.Category][]guide.Product{
			guide.CategoryCooler: {
				{ID: "cl-1", Name: "Cool 2", Category: guide.CategoryCooler},
			},
		},
	}
}

func TestCreateAndGetSession(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{Language: "de"})
	require.NoError(t, err)
	assert.Equal(t, "de", created.Language)
	assert.Equal(t, "powersource", created.Current)
	assert.False(t, created.Finalized)

	got, err := f.svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, got.Id)
}

func TestSendMessageSearchesNamedCategory(t *testing.T) {
	extractor := &fakeExtractor{byMessage: map[string]guide.Requirements{
		"I need a 300 amp machine": {
			guide.CategoryPowerSource: {"current": "300A"},
		},
	}}
	f := newFixture(defaultGateway(), extractor)
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	turn, err := f.svc.SendMessage(ctx, created.Id, &dto.SendMessageRequest{Message: "I need a 300 amp machine"})
	require.NoError(t, err)
	assert.Equal(t, "powersource", turn.Current)
	require.Len(t, turn.Results, 2)
	assert.Equal(t, "ps-1", turn.Results[0].Id)
}

func TestSelectTriggersAutoSkip(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	// No feeder is compatible with anything in this catalog: selecting
	// the power source must skip straight past the feeder to the cooler.
	turn, err := f.svc.Select(ctx, created.Id, &dto.SelectRequest{
		Category:    "PowerSource",
		ProductId:   "ps-1",
		ProductName: "Alpha 300",
	})
	require.NoError(t, err)

	assert.Equal(t, "cooler", turn.Current)
	require.Len(t, turn.Results, 1)
	assert.Equal(t, "cl-1", turn.Results[0].Id)

	require.Len(t, turn.Transitions, 2)
	assert.False(t, turn.Transitions[0].Skipped)
	assert.Equal(t, "feeder", turn.Transitions[0].NewCategory)
	assert.True(t, turn.Transitions[1].Skipped)
	assert.Equal(t, "feeder", turn.Transitions[1].PreviousCategory)
	assert.Equal(t, "cooler", turn.Transitions[1].NewCategory)
	assert.NotEmpty(t, turn.Transitions[1].SkipReason)
}

func TestSkipBehaviorMatchesAcrossEntryPoints(t *testing.T) {
	extractor := &fakeExtractor{byMessage: map[string]guide.Requirements{
		"show me feeders": {
			guide.CategoryFeeder: {"wire": "1.2mm"},
		},
	}}

	// Three sessions in the same state, driven into the feeder search
	// through the three entry points, must land on the same category.
	seed := func(t *testing.T) (*fixture, context.Context, string) {
		t.Helper()
		f := newFixture(defaultGateway(), extractor)
		ctx := context.Background()
		created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
		require.NoError(t, err)

		sess, err := f.sessions.Get(ctx, created.Id)
		require.NoError(t, err)
		sess.Selections.Select(guide.CategoryPowerSource, guide.SelectedItem{ID: "ps-1", Name: "Alpha 300"}, false)
		sess.Selections.Select(guide.CategoryCooler, guide.SelectedItem{ID: "cl-1", Name: "Cool 2"}, false)
		require.NoError(t, f.sessions.Save(ctx, sess))
		return f, ctx, created.Id
	}

	f1, ctx1, id1 := seed(t)
	turn, err := f1.svc.Select(ctx1, id1, &dto.SelectRequest{Category: "powersource", ProductId: "ps-1"})
	require.NoError(t, err)
	viaSelect := turn.Current

	f2, ctx2, id2 := seed(t)
	turn, err = f2.svc.SendMessage(ctx2, id2, &dto.SendMessageRequest{Message: "show me feeders"})
	require.NoError(t, err)
	viaMessage := turn.Current

	f3, ctx3, id3 := seed(t)
	turn, err = f3.svc.Advance(ctx3, id3, &dto.AdvanceRequest{Signal: constant.AdvanceSignalNext})
	require.NoError(t, err)
	viaAdvance := turn.Current

	assert.Equal(t, viaSelect, viaMessage)
	assert.Equal(t, viaSelect, viaAdvance)
	assert.Equal(t, "accessory", viaSelect, "no compatible feeder, interconnector or torch: every path skips to the multi-select accessory")
}

func TestSendMessageCompoundRequest(t *testing.T) {
	gw := defaultGateway()
	// Exactly one product matches each specification.
	gw.unfiltered[guide.CategoryPowerSource] = []guide.Product{
		{ID: "ps-1", Name: "Alpha 300", Category: guide.CategoryPowerSource},
	}
	gw.filtered[guide.CategoryFeeder] = []guide.Product{
		{ID: "fd-1", Name: "Feed 400", Category: guide.CategoryFeeder},
	}
	extractor := &fakeExtractor{byMessage: map[string]guide.Requirements{
		"a 300A machine with a matching feeder": {
			guide.CategoryPowerSource: {"current": "300A"},
			guide.CategoryFeeder:      {"wire": "1.2mm"},
		},
	}}
	f := newFixture(gw, extractor)
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	turn, err := f.svc.SendMessage(ctx, created.Id, &dto.SendMessageRequest{Message: "a 300A machine with a matching feeder"})
	require.NoError(t, err)

	require.Len(t, turn.Compound, 2)
	for _, oc := range turn.Compound {
		assert.NotNil(t, oc.AutoSelected, "single matches must auto-select (category %s)", oc.Category)
	}
	assert.Equal(t, "cooler", turn.Current)

	got, err := f.svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.Len(t, got.Selections, 2)
}

func TestSendMessageRefusesDownstreamWithoutRoot(t *testing.T) {
	extractor := &fakeExtractor{byMessage: map[string]guide.Requirements{
		"show me torches": {
			guide.CategoryTorch: {"length": "4m"},
		},
	}}
	f := newFixture(defaultGateway(), extractor)
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	turn, err := f.svc.SendMessage(ctx, created.Id, &dto.SendMessageRequest{Message: "show me torches"})
	require.NoError(t, err)
	assert.NotEmpty(t, turn.Message)
	assert.Equal(t, "powersource", turn.Current)
	assert.Empty(t, turn.Results)
}

func TestAdvanceRefusesUnselectedMandatory(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = f.svc.Advance(ctx, created.Id, &dto.AdvanceRequest{Signal: constant.AdvanceSignalSkip})
	require.Error(t, err)
	fe, ok := err.(*fiber.Error)
	require.True(t, ok)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
}

func TestFailedTurnLeavesNoPartialState(t *testing.T) {
	gw := defaultGateway()
	gw.errs = map[guide.Category]error{
		guide.CategoryFeeder: errors.New("catalog unavailable"),
	}
	f := newFixture(gw, &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	// The proactive feeder search fails after the selection was applied
	// in memory; nothing from the turn may reach the store.
	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "powersource", ProductId: "ps-1"})
	require.Error(t, err)

	got, err := f.svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	require.Empty(t, got.Selections, "failed turn must not leave a partial selection visible")
	assert.Equal(t, "powersource", got.Current)
}

func TestSkippedMultiSelectDoesNotResurface(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "powersource", ProductId: "ps-1"})
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "cooler", ProductId: "cl-1"})
	require.NoError(t, err)

	turn, err := f.svc.Advance(ctx, created.Id, &dto.AdvanceRequest{Signal: constant.AdvanceSignalSkip})
	require.NoError(t, err)
	require.Equal(t, "remotecontrol", turn.Current)

	// A later forward scan must pass over the skipped accessory step.
	turn, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "cooler", ProductId: "cl-1"})
	require.NoError(t, err)
	assert.Equal(t, "remotecontrol", turn.Current)
}

func TestMultiSelectStaysUntilDone(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "powersource", ProductId: "ps-1"})
	require.NoError(t, err)
	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "cooler", ProductId: "cl-1"})
	require.NoError(t, err)

	got, err := f.svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	require.Equal(t, "accessory", got.Current)

	// Selecting accessories keeps the session in place.
	turn, err := f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "accessory", ProductId: "acc-1"})
	require.NoError(t, err)
	assert.Equal(t, "accessory", turn.Current)

	turn, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "accessory", ProductId: "acc-2"})
	require.NoError(t, err)
	assert.Equal(t, "accessory", turn.Current)

	// Done moves on; the conditional remote control is never auto-skipped
	// even though nothing matches it.
	turn, err = f.svc.Advance(ctx, created.Id, &dto.AdvanceRequest{Signal: constant.AdvanceSignalDone})
	require.NoError(t, err)
	assert.Equal(t, "remotecontrol", turn.Current)

	got, err = f.svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.Len(t, got.Selections, 4)
}

func TestFinalize(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = f.svc.Finalize(ctx, created.Id)
	require.Error(t, err, "finalize without the mandatory root must fail")

	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "powersource", ProductId: "ps-1"})
	require.NoError(t, err)

	res, err := f.svc.Finalize(ctx, created.Id)
	require.NoError(t, err)
	assert.True(t, res.Finalized)
	assert.Equal(t, "finalize", res.Current)

	require.Len(t, f.archive.archives, 1)
	assert.Equal(t, constant.ArchiveStatusFinalized, f.archive.archives[0].Status)

	// Finalized sessions accept no further turns.
	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "cooler", ProductId: "cl-1"})
	require.Error(t, err)
}

func TestResetArchivesAndClears(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "powersource", ProductId: "ps-1"})
	require.NoError(t, err)

	res, err := f.svc.Reset(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, created.Id, res.Id)
	assert.Equal(t, "powersource", res.Current)
	assert.Empty(t, res.Selections)

	require.Len(t, f.archive.archives, 1)
	assert.Equal(t, constant.ArchiveStatusReset, f.archive.archives[0].Status)
}

func TestTranscriptCollectsRecordsAndArchives(t *testing.T) {
	f := newFixture(defaultGateway(), &fakeExtractor{})
	ctx := context.Background()

	created, err := f.svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)

	f.records.records = append(f.records.records, &entity.TransitionRecord{
		SessionId:       created.Id,
		NewCategory:     "cooler",
		Skipped:         true,
		RenderedMessage: "We moved past wire feeder",
	})

	_, err = f.svc.Select(ctx, created.Id, &dto.SelectRequest{Category: "powersource", ProductId: "ps-1"})
	require.NoError(t, err)
	_, err = f.svc.Reset(ctx, created.Id)
	require.NoError(t, err)

	transcript, err := f.svc.Transcript(ctx, created.Id)
	require.NoError(t, err)
	require.Len(t, transcript.Transitions, 1)
	assert.Equal(t, "cooler", transcript.Transitions[0].NewCategory)
	require.Len(t, transcript.Archives, 1)
	assert.Equal(t, constant.ArchiveStatusReset, transcript.Archives[0].Status)
}
