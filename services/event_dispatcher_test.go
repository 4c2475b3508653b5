package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
)

func (e *testEnv) insertEvent(t *testing.T, studentID, universityID uint, action model.SelectionAction, version int64) *model.SelectionEvent {
	t.Helper()
	event := &model.SelectionEvent{
		StudentID:      studentID,
		UniversityID:   universityID,
		Action:         action,
		IdempotencyKey: model.SelectionEventKey(studentID, universityID, action, version),
		Status:         model.SelectionEventPending,
	}
	if err := e.db.Create(event).Error; err != nil {
		t.Fatalf("failed to insert event: %v", err)
	}
	return event
}

func TestDeliverPendingInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, b := env.uni(0), env.uni(1)

	env.insertEvent(t, 1, a, model.SelectionActionLocked, 1)
	env.insertEvent(t, 1, a, model.SelectionActionUnlocked, 2)
	env.insertEvent(t, 1, b, model.SelectionActionLocked, 3)
	env.insertEvent(t, 2, b, model.SelectionActionLocked, 1)

	delivered, err := env.dispatcher.DeliverPending(ctx, 1)
	if err != nil {
		t.Fatalf("DeliverPending failed: %v", err)
	}
	if delivered != 3 {
		t.Fatalf("expected 3 delivered, got %d", delivered)
	}

	want := []hookCall{
		{model.SelectionActionLocked, 1, a},
		{model.SelectionActionUnlocked, 1, a},
		{model.SelectionActionLocked, 1, b},
	}
	calls := env.generator.Calls()
	if len(calls) != len(want) {
		t.Fatalf("expected %d calls, got %+v", len(want), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d: expected %+v, got %+v", i, want[i], calls[i])
		}
	}

	for _, e := range env.events(t, 1) {
		if e.Status != model.SelectionEventDelivered || e.DeliveredAt == nil || e.Attempts != 1 {
			t.Errorf("event %d not marked delivered: %+v", e.ID, e)
		}
	}
	if other := env.events(t, 2); other[0].Status != model.SelectionEventPending {
		t.Errorf("another student's event must stay pending, got %s", other[0].Status)
	}

	// Nothing left to deliver
	delivered, err = env.dispatcher.DeliverPending(ctx, 1)
	if err != nil || delivered != 0 {
		t.Fatalf("expected an empty second pass, got %d, %v", delivered, err)
	}
}

func TestDeliverPendingStopsAtFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.insertEvent(t, 1, env.uni(0), model.SelectionActionLocked, 1)
	env.insertEvent(t, 1, env.uni(0), model.SelectionActionUnlocked, 2)
	env.generator.setFail(errors.New("timeout"))

	delivered, err := env.dispatcher.DeliverPending(ctx, 1)
	if !errors.Is(err, ErrTaskGeneration) {
		t.Fatalf("expected ErrTaskGeneration, got %v", err)
	}
	if delivered != 0 {
		t.Fatalf("expected nothing delivered, got %d", delivered)
	}

	events := env.events(t, 1)
	if events[0].Attempts != 1 || events[0].LastError != "timeout" {
		t.Errorf("expected the first event to record the failure, got %+v", events[0])
	}
	if events[1].Attempts != 0 {
		t.Errorf("the later event must not be attempted, got %d attempts", events[1].Attempts)
	}
}

func TestDeliverPendingGivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.insertEvent(t, 1, env.uni(0), model.SelectionActionLocked, 1)
	env.generator.setFail(errors.New("generator down"))

	for i := 1; i < 3; i++ {
		if _, err := env.dispatcher.DeliverPending(ctx, 1); err == nil {
			t.Fatalf("attempt %d: expected a failure", i)
		}
	}
	// The third failure reaches the limit and the event is abandoned
	if _, err := env.dispatcher.DeliverPending(ctx, 1); err != nil {
		t.Fatalf("expected an abandoned event to stop blocking, got %v", err)
	}

	events := env.events(t, 1)
	if events[0].Status != model.SelectionEventFailed || events[0].Attempts != 3 {
		t.Fatalf("expected failed after 3 attempts, got %+v", events[0])
	}

	// Later events flow again
	env.generator.setFail(nil)
	env.insertEvent(t, 1, env.uni(0), model.SelectionActionUnlocked, 2)
	delivered, err := env.dispatcher.DeliverPending(ctx, 1)
	if err != nil || delivered != 1 {
		t.Fatalf("expected the next event to be delivered, got %d, %v", delivered, err)
	}
}

func TestDispatchPendingSweepsStudents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.insertEvent(t, 1, env.uni(0), model.SelectionActionLocked, 1)
	env.insertEvent(t, 2, env.uni(1), model.SelectionActionLocked, 1)
	env.insertEvent(t, 2, env.uni(1), model.SelectionActionUnlocked, 2)

	env.generator.setFail(errors.New("unavailable"))
	result, err := env.dispatcher.DispatchPending(ctx, env.locker)
	if err != nil {
		t.Fatalf("DispatchPending failed: %v", err)
	}
	if result.Students != 2 || result.Failed != 2 || result.Delivered != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	env.generator.setFail(nil)
	result, err = env.dispatcher.DispatchPending(ctx, env.locker)
	if err != nil {
		t.Fatalf("DispatchPending failed: %v", err)
	}
	if result.Students != 2 || result.Failed != 0 || result.Delivered != 3 {
		t.Fatalf("unexpected result %+v", result)
	}

	result, err = env.dispatcher.DispatchPending(ctx, env.locker)
	if err != nil {
		t.Fatalf("DispatchPending failed: %v", err)
	}
	if result.Students != 0 {
		t.Fatalf("expected an idle sweep, got %+v", result)
	}
}

func TestDispatchPendingHonorsCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.insertEvent(t, 1, env.uni(0), model.SelectionActionLocked, 1)

	// Hold the student so the sweep has to wait
	release, err := env.locker.Acquire(context.Background(), 1)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := env.dispatcher.DispatchPending(ctx, env.locker); err == nil {
		t.Fatal("expected the sweep to give up while the student is locked")
	}
	if len(env.generator.Calls()) != 0 {
		t.Fatal("no hook may run without the student lock")
	}
}

func TestPurgeDelivered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	old := env.insertEvent(t, 1, env.uni(0), model.SelectionActionLocked, 1)
	recent := env.insertEvent(t, 1, env.uni(0), model.SelectionActionUnlocked, 2)
	pending := env.insertEvent(t, 1, env.uni(1), model.SelectionActionLocked, 3)

	longAgo := time.Now().UTC().Add(-40 * 24 * time.Hour)
	yesterday := time.Now().UTC().Add(-24 * time.Hour)
	for id, at := range map[uint]time.Time{old.ID: longAgo, recent.ID: yesterday} {
		if err := env.db.Model(&model.SelectionEvent{}).Where("id = ?", id).
			Updates(map[string]interface{}{"status": model.SelectionEventDelivered, "delivered_at": at}).Error; err != nil {
			t.Fatalf("failed to update event: %v", err)
		}
	}

	purged, err := env.dispatcher.PurgeDelivered(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PurgeDelivered failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged event, got %d", purged)
	}

	remaining := env.events(t, 1)
	if len(remaining) != 2 || remaining[0].ID != recent.ID || remaining[1].ID != pending.ID {
		t.Fatalf("unexpected remaining events %+v", remaining)
	}
}

// gatedGenerator parks the first OnLocked call until release is closed
type gatedGenerator struct {
	TaskGenerator
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedGenerator) OnLocked(ctx context.Context, studentID, universityID uint) error {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.TaskGenerator.OnLocked(ctx, studentID, universityID)
}

// blockingGenerator never finishes a lock hook before its deadline
type blockingGenerator struct {
	TaskGenerator
}

func (blockingGenerator) OnLocked(ctx context.Context, studentID, universityID uint) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestLateLockReplayFromAnotherInstanceAfterUnlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	log := logger.NewNop()
	generator := NewTemplateTaskGenerator(env.db, env.catalog, log)
	a := env.uni(0)
	env.shortlist(t, 1, a)

	// The inline delivery fails, so the lock event stays pending
	env.generator.setFail(errors.New("generator down"))
	if _, err := env.selection.Lock(ctx, 1, a); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	env.dispatcher.generator = generator

	// A second instance with its own in-process locker picks the event up and stalls
	gated := &gatedGenerator{
		TaskGenerator: generator,
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	other := NewEventDispatcher(env.db, gated, 3, log).WithSweepTimeout(30 * time.Second)

	type sweep struct {
		result DispatchResult
		err    error
	}
	done := make(chan sweep, 1)
	go func() {
		result, err := other.DispatchPending(ctx, NewLocalStudentLocker())
		done <- sweep{result, err}
	}()
	<-gated.entered

	if _, err := env.selection.Unlock(ctx, 1, a, true); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if n := len(env.tasks(t, 1)); n != 0 {
		t.Fatalf("expected no tasks after unlock, got %d", n)
	}

	close(gated.release)
	got := <-done
	if got.err != nil {
		t.Fatalf("DispatchPending failed: %v", got.err)
	}
	if got.result.Delivered != 0 {
		t.Errorf("the event was already settled by the first instance, got %d delivered", got.result.Delivered)
	}
	if n := len(env.tasks(t, 1)); n != 0 {
		t.Fatalf("the late lock event recreated %d tasks for an unlocked university", n)
	}
	for _, e := range env.events(t, 1) {
		if e.Status != model.SelectionEventDelivered {
			t.Errorf("event %d: expected delivered, got %s", e.ID, e.Status)
		}
	}
}

func TestDispatchPendingBoundsEachStudent(t *testing.T) {
	env := newTestEnv(t)
	env.insertEvent(t, 1, env.uni(0), model.SelectionActionLocked, 1)

	dispatcher := NewEventDispatcher(env.db, blockingGenerator{env.generator}, 3, logger.NewNop()).
		WithSweepTimeout(50 * time.Millisecond)

	start := time.Now()
	result, err := dispatcher.DispatchPending(context.Background(), env.locker)
	if err != nil {
		t.Fatalf("DispatchPending failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("sweep held the student for %v", elapsed)
	}
	if result.Failed != 1 || result.Delivered != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	// The timed out attempt is still recorded
	events := env.events(t, 1)
	if events[0].Status != model.SelectionEventPending || events[0].Attempts != 1 || events[0].LastError == "" {
		t.Fatalf("expected a recorded failed attempt, got %+v", events[0])
	}
	if env.locker.held(1) != 0 {
		t.Fatal("the student lock must be released after the sweep")
	}
}
