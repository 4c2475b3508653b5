package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/database/dbtest"
	"github.com/hkbharti77/AI-Counsellor/model"
	"gorm.io/gorm"
)

func newShortlistStore(t *testing.T) (*database.ShortlistStore, []model.University) {
	t.Helper()
	store := dbtest.New(t)
	universities := dbtest.SeedUniversities(t, store.GetDB())
	return database.NewShortlistStore(store.GetDB()), universities
}

func TestShortlistStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store, universities := newShortlistStore(t)

	dream := model.ShortlistCategoryDream
	for _, u := range universities[:3] {
		entry := &model.ShortlistEntry{StudentID: 1, UniversityID: u.ID, Category: &dream}
		if err := store.Create(ctx, entry); err != nil {
			t.Fatalf("Create(%d) failed: %v", u.ID, err)
		}
	}

	entries, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.UniversityID != universities[i].ID {
			t.Errorf("entry %d: expected university %d, got %d", i, universities[i].ID, e.UniversityID)
		}
		if e.University.Name != universities[i].Name {
			t.Errorf("entry %d: university not preloaded, got %q", i, e.University.Name)
		}
		if e.IsLocked || e.LockedAt != nil {
			t.Errorf("entry %d: new entries must be unlocked", i)
		}
	}

	other, err := store.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get(other) failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no entries for another student, got %d", len(other))
	}
}

func TestShortlistStoreDuplicatePair(t *testing.T) {
	ctx := context.Background()
	store, universities := newShortlistStore(t)

	if err := store.Create(ctx, &model.ShortlistEntry{StudentID: 1, UniversityID: universities[0].ID}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	err := store.Create(ctx, &model.ShortlistEntry{StudentID: 1, UniversityID: universities[0].ID})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestShortlistStoreFindMissing(t *testing.T) {
	store, universities := newShortlistStore(t)

	_, err := store.Find(context.Background(), 1, universities[0].ID)
	if !errors.Is(err, database.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestShortlistStoreUpdateLock(t *testing.T) {
	ctx := context.Background()
	store, universities := newShortlistStore(t)

	entry := &model.ShortlistEntry{StudentID: 1, UniversityID: universities[0].ID}
	if err := store.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.UpdateLock(ctx, entry.ID, true, nil); err == nil {
		t.Fatal("expected an error when locking without locked_at")
	}

	now := time.Now().UTC()
	if err := store.UpdateLock(ctx, entry.ID, true, &now); err != nil {
		t.Fatalf("UpdateLock(true) failed: %v", err)
	}
	if err := store.UpdateLock(ctx, entry.ID, true, &now); !errors.Is(err, database.ErrEntryNotFound) {
		t.Fatalf("locking a locked entry should match no rows, got %v", err)
	}

	locked, err := store.GetLocked(ctx, 1)
	if err != nil {
		t.Fatalf("GetLocked failed: %v", err)
	}
	if locked == nil || locked.ID != entry.ID || locked.LockedAt == nil {
		t.Fatalf("expected entry %d to be locked with locked_at, got %+v", entry.ID, locked)
	}

	if err := store.UpdateLock(ctx, entry.ID, false, nil); err != nil {
		t.Fatalf("UpdateLock(false) failed: %v", err)
	}
	locked, err = store.GetLocked(ctx, 1)
	if err != nil {
		t.Fatalf("GetLocked failed: %v", err)
	}
	if locked != nil {
		t.Fatalf("expected no locked entry, got %+v", locked)
	}
}

func TestShortlistStoreOneLockedEntryPerStudent(t *testing.T) {
	ctx := context.Background()
	store, universities := newShortlistStore(t)

	first := &model.ShortlistEntry{StudentID: 1, UniversityID: universities[0].ID}
	second := &model.ShortlistEntry{StudentID: 1, UniversityID: universities[1].ID}
	for _, e := range []*model.ShortlistEntry{first, second} {
		if err := store.Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	now := time.Now().UTC()
	if err := store.UpdateLock(ctx, first.ID, true, &now); err != nil {
		t.Fatalf("UpdateLock(first) failed: %v", err)
	}

	// The partial unique index rejects a second locked row even without the service checks
	err := store.UpdateLock(ctx, second.ID, true, &now)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey for a second locked entry, got %v", err)
	}

	// Other students are unaffected
	other := &model.ShortlistEntry{StudentID: 2, UniversityID: universities[1].ID}
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("Create(other) failed: %v", err)
	}
	if err := store.UpdateLock(ctx, other.ID, true, &now); err != nil {
		t.Fatalf("UpdateLock(other) failed: %v", err)
	}
}

func TestShortlistStoreDeleteOnlyUnlocked(t *testing.T) {
	ctx := context.Background()
	store, universities := newShortlistStore(t)

	entry := &model.ShortlistEntry{StudentID: 1, UniversityID: universities[0].ID}
	if err := store.Create(ctx, entry); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	now := time.Now().UTC()
	if err := store.UpdateLock(ctx, entry.ID, true, &now); err != nil {
		t.Fatalf("UpdateLock failed: %v", err)
	}

	if err := store.Delete(ctx, 1, universities[0].ID); !errors.Is(err, database.ErrEntryNotFound) {
		t.Fatalf("deleting a locked entry must not match, got %v", err)
	}

	if err := store.UpdateLock(ctx, entry.ID, false, nil); err != nil {
		t.Fatalf("UpdateLock(false) failed: %v", err)
	}
	if err := store.Delete(ctx, 1, universities[0].ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Find(ctx, 1, universities[0].ID); !errors.Is(err, database.ErrEntryNotFound) {
		t.Fatalf("expected entry to be gone, got %v", err)
	}
}

func TestShortlistStoreSelectionSwap(t *testing.T) {
	ctx := context.Background()
	store, universities := newShortlistStore(t)
	a, b := universities[0].ID, universities[1].ID

	err := store.Transaction(ctx, func(tx *database.ShortlistStore) error {
		selection, err := tx.AcquireSelection(ctx, 7)
		if err != nil {
			return err
		}
		if selection.LockedUniversityID != nil || selection.Version != 0 {
			t.Errorf("expected an empty selection row, got %+v", selection)
		}

		ok, err := tx.SwapLockedUniversity(ctx, 7, nil, &a)
		if err != nil {
			return err
		}
		if !ok {
			t.Error("expected swap from nil to succeed")
		}

		ok, err = tx.SwapLockedUniversity(ctx, 7, nil, &b)
		if err != nil {
			return err
		}
		if ok {
			t.Error("expected swap from a stale expectation to fail")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	selection, err := store.Selection(ctx, 7)
	if err != nil {
		t.Fatalf("Selection failed: %v", err)
	}
	if selection.LockedUniversityID == nil || *selection.LockedUniversityID != a {
		t.Fatalf("expected locked university %d, got %v", a, selection.LockedUniversityID)
	}
	if selection.Version != 1 {
		t.Errorf("expected version 1, got %d", selection.Version)
	}

	// AcquireSelection on an existing row keeps it
	err = store.Transaction(ctx, func(tx *database.ShortlistStore) error {
		again, err := tx.AcquireSelection(ctx, 7)
		if err != nil {
			return err
		}
		if again.Version != 1 {
			t.Errorf("expected existing row to be returned, got version %d", again.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second transaction failed: %v", err)
	}
}

func TestShortlistStoreTransactionRollback(t *testing.T) {
	ctx := context.Background()
	store, universities := newShortlistStore(t)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *database.ShortlistStore) error {
		if err := tx.Create(ctx, &model.ShortlistEntry{StudentID: 1, UniversityID: universities[0].ID}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	entries, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected rollback to discard the entry, got %d entries", len(entries))
	}
}

func TestSelectionOfUnknownStudent(t *testing.T) {
	store, _ := newShortlistStore(t)

	selection, err := store.Selection(context.Background(), 404)
	if err != nil {
		t.Fatalf("Selection failed: %v", err)
	}
	if selection.StudentID != 404 || selection.LockedUniversityID != nil {
		t.Fatalf("expected zero selection, got %+v", selection)
	}
}
