package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/database/dbtest"
	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"gorm.io/gorm"
)

type hookCall struct {
	Action       model.SelectionAction
	StudentID    uint
	UniversityID uint
}

// recordingGenerator records hook invocations and can be told to fail
type recordingGenerator struct {
	mu    sync.Mutex
	calls []hookCall
	fail  error
}

func (g *recordingGenerator) OnLocked(ctx context.Context, studentID, universityID uint) error {
	return g.record(model.SelectionActionLocked, studentID, universityID)
}

func (g *recordingGenerator) OnUnlocked(ctx context.Context, studentID, universityID uint) error {
	return g.record(model.SelectionActionUnlocked, studentID, universityID)
}

func (g *recordingGenerator) record(action model.SelectionAction, studentID, universityID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.calls = append(g.calls, hookCall{Action: action, StudentID: studentID, UniversityID: universityID})
	return nil
}

func (g *recordingGenerator) setFail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

func (g *recordingGenerator) Calls() []hookCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]hookCall(nil), g.calls...)
}

type testEnv struct {
	db           *gorm.DB
	universities []model.University
	catalog      *CatalogService
	locker       *LocalStudentLocker
	generator    *recordingGenerator
	dispatcher   *EventDispatcher
	selection    *SelectionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := dbtest.New(t)
	db := store.GetDB()
	log := logger.NewNop()

	env := &testEnv{
		db:           db,
		universities: dbtest.SeedUniversities(t, db),
		locker:       NewLocalStudentLocker(),
		generator:    &recordingGenerator{},
	}
	env.catalog = NewCatalogService(db, nil, log)
	env.dispatcher = NewEventDispatcher(db, env.generator, 3, log)
	env.selection = NewSelectionService(
		database.NewShortlistStore(db),
		env.catalog,
		env.locker,
		env.dispatcher,
		SelectionConfig{HookTimeout: 2 * time.Second, LockWait: 30 * time.Second},
		log,
	)
	return env
}

// uni returns the id of the i-th seeded university
func (e *testEnv) uni(i int) uint {
	return e.universities[i].ID
}

func (e *testEnv) shortlist(t *testing.T, studentID uint, universityIDs ...uint) {
	t.Helper()
	for _, id := range universityIDs {
		if _, _, err := e.selection.Shortlist(context.Background(), studentID, id, nil); err != nil {
			t.Fatalf("Shortlist(%d, %d) failed: %v", studentID, id, err)
		}
	}
}

func (e *testEnv) lockedCount(t *testing.T, studentID uint) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&model.ShortlistEntry{}).
		Where("student_id = ? AND is_locked = ?", studentID, true).
		Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}

func (e *testEnv) events(t *testing.T, studentID uint) []model.SelectionEvent {
	t.Helper()
	var events []model.SelectionEvent
	if err := e.db.Where("student_id = ?", studentID).Order("id ASC").Find(&events).Error; err != nil {
		t.Fatalf("failed to load events: %v", err)
	}
	return events
}

func assertSelectionError(t *testing.T, err error, want *SelectionError) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Code, err)
	}
}
