package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/assignment_board/internal/model"
	"github.com/Freeeeeet/assignment_board/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

var day = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

type memorySink struct {
	mu      sync.Mutex
	records []Record
	err     error
	got     chan struct{}
}

func newMemorySink() *memorySink {
	return &memorySink{got: make(chan struct{}, 64)}
}

func (s *memorySink) Write(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	s.got <- struct{}{}
	return s.err
}

func (s *memorySink) all() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func namedStore() *memory.Store {
	store := memory.New()
	store.SetEmployee(1, "Anna", 0)
	store.SetName(model.RefClient, 3, "Acme")
	store.SetName(model.RefScheduleType, 7, "Morning")
	store.SetName(model.RefLifecycleState, model.LifecycleCompletedID, "Выполнено")
	return store
}

func TestEnrich_ResolvesNamesWithPlaceholders(t *testing.T) {
	e := NewEnricher(namedStore().Names(), zaptest.NewLogger(t))

	client := &model.Slot{
		ID:               10,
		EmployeeID:       1,
		Date:             day,
		ClientID:         model.ID(3),
		ScheduleTypeID:   model.ID(7),
		LifecycleStateID: model.ID(model.LifecycleCompletedID),
	}
	paired := &model.Slot{
		ID:             11,
		EmployeeID:     1,
		Date:           day,
		StatusID:       model.ID(4),
		WithEmployeeID: model.ID(9),
	}

	rec := e.Enrich(context.Background(), Change{
		Actor:      Actor{ID: "u-1", Label: "Dispatcher"},
		Kind:       ActionUpdate,
		ActionType: TypeCompleted,
		EmployeeID: 1,
		Date:       day,
		SlotKey:    "client-3_type-7",
		Before:     []*model.Slot{paired},
		After:      []*model.Slot{client},
		Details:    map[string]any{"preserved": 1},
	})

	assert.NotEqual(t, [16]byte{}, [16]byte(rec.ID))
	assert.Equal(t, "u-1", rec.ActorID)
	assert.Equal(t, "Dispatcher", rec.ActorLabel)
	assert.Equal(t, ActionUpdate, rec.ActionKind)
	assert.Equal(t, EntitySlot, rec.EntityKind)
	assert.Equal(t, "employee:1/2025-01-10/client-3_type-7", rec.EntityRef)

	assert.Equal(t, "completed", rec.After["actionType"])
	assert.Equal(t, "Anna", rec.After["employee"])
	assert.Equal(t, 1, rec.After["preserved"])

	after := rec.After["slots"].([]map[string]any)
	require.Len(t, after, 1)
	assert.Equal(t, "Acme", after[0]["client"])
	assert.Equal(t, "Morning", after[0]["scheduleType"])
	assert.Equal(t, "Выполнено", after[0]["lifecycleState"])
	assert.Equal(t, "client-3_type-7", after[0]["key"])

	before := rec.Before["slots"].([]map[string]any)
	require.Len(t, before, 1)
	assert.Equal(t, "Status 4", before[0]["status"])
	assert.Equal(t, "Employee 9", before[0]["withEmployee"])
}

func TestEnrich_DefaultsToSystemActor(t *testing.T) {
	e := NewEnricher(memory.New().Names(), zap.NewNop())

	rec := e.Enrich(context.Background(), Change{Kind: ActionDelete, ActionType: TypeClearedAll, EmployeeID: 2, Date: day})

	assert.Equal(t, SystemActor.ID, rec.ActorID)
	assert.Equal(t, "employee:2/2025-01-10", rec.EntityRef)
	assert.Equal(t, "Employee 2", rec.After["employee"])
	assert.Nil(t, rec.Before)
	assert.False(t, rec.OccurredAt.IsZero())
}

func TestResolver_CachesLookups(t *testing.T) {
	store := namedStore()
	res := NewResolver(store.Names(), zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, "Acme", res.Name(ctx, model.RefClient, 3))
	store.SetName(model.RefClient, 3, "Renamed")
	assert.Equal(t, "Acme", res.Name(ctx, model.RefClient, 3))

	_, ok := res.OptionalName(ctx, model.RefClient, nil)
	assert.False(t, ok)
	assert.Equal(t, "Schedule type 8", Placeholder(model.RefScheduleType, 8))
}

func TestDispatcher_DeliversAndSwallowsSinkErrors(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sink := newMemorySink()
	sink.err = errors.New("disk full")

	d := NewDispatcher(NewEnricher(namedStore().Names(), zap.NewNop()), sink, 8, zap.New(core))
	d.Start(context.Background())

	d.Emit(Change{Kind: ActionCreate, ActionType: TypeCreated, EmployeeID: 1, Date: day})

	select {
	case <-sink.got:
	case <-time.After(2 * time.Second):
		t.Fatal("record was not delivered")
	}
	d.Stop()

	require.Len(t, sink.all(), 1)
	assert.Equal(t, 1, logs.FilterMessage("Failed to write audit record").Len())
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sink := newMemorySink()

	// Not started: nothing drains the queue.
	d := NewDispatcher(NewEnricher(memory.New().Names(), zap.NewNop()), sink, 1, zap.New(core))

	d.Emit(Change{ActionType: TypeCreated, EmployeeID: 1, Date: day})
	d.Emit(Change{ActionType: TypeCreated, EmployeeID: 1, Date: day})

	assert.Equal(t, 1, logs.FilterMessage("Audit queue full, record dropped").Len())

	d.Start(context.Background())
	d.Stop()
	assert.Len(t, sink.all(), 1)

	d.Emit(Change{ActionType: TypeCreated, EmployeeID: 1, Date: day})
	assert.Equal(t, 1, logs.FilterMessage("Audit dispatcher stopped, record dropped").Len())
}

// Каждая запись либо доставлена, либо явно отброшена, даже при Stop во время Emit.
func TestDispatcher_EmitRacingStopLosesNothingSilently(t *testing.T) {
	const workers, perWorker = 4, 10

	core, logs := observer.New(zap.WarnLevel)
	sink := newMemorySink()
	d := NewDispatcher(NewEnricher(memory.New().Names(), zap.NewNop()), sink, workers*perWorker, zap.New(core))
	d.Start(context.Background())

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				d.Emit(Change{ActionType: TypeCreated, EmployeeID: 1, Date: day})
			}
		}()
	}
	d.Stop()
	wg.Wait()

	dropped := logs.FilterMessage("Audit dispatcher stopped, record dropped").Len() +
		logs.FilterMessage("Audit queue full, record dropped").Len()
	assert.Equal(t, workers*perWorker, len(sink.all())+dropped)
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	ok := newMemorySink()
	bad := newMemorySink()
	bad.err = errors.New("boom")

	err := MultiSink{ok, bad, NewLogSink(zap.NewNop())}.Write(context.Background(), Record{})
	require.Error(t, err)
	assert.Len(t, ok.all(), 1)
	assert.Len(t, bad.all(), 1)
}

func TestActorFromContext(t *testing.T) {
	assert.Equal(t, SystemActor, ActorFromContext(context.Background()))

	ctx := WithActor(context.Background(), Actor{ID: "42"})
	assert.Equal(t, Actor{ID: "42", Label: "42"}, ActorFromContext(ctx))
}
