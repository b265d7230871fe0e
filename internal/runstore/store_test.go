package runstore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jxucoder/PatchPilot/internal/runstore"
)

// newTestStore creates a Store backed by a temporary SQLite database.
func newTestStore(t *testing.T) *runstore.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := runstore.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// makeRun returns a minimal Run with sensible defaults.
func makeRun(id, description string) *runstore.Run {
	now := time.Now().UTC().Truncate(time.Second)
	return &runstore.Run{
		ID:             id,
		BugDescription: description,
		ProjectDir:     "/tmp/project",
		Model:          "vertex_ai/claude-3-7-sonnet@20250219",
		Status:         runstore.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ---------------------------------------------------------------------------
// Store creation
// ---------------------------------------------------------------------------

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "new.db")
	store, err := runstore.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewStore_InvalidPath(t *testing.T) {
	// A path under a non-existent directory should fail during open or migration.
	_, err := runstore.NewStore("/no/such/dir/test.db")
	if err == nil {
		t.Fatal("expected error for invalid path, got nil")
	}
}

// ---------------------------------------------------------------------------
// CreateRun + GetRun
// ---------------------------------------------------------------------------

func TestCreateAndGetRun(t *testing.T) {
	store := newTestStore(t)

	want := makeRun("run-1", "cart total is wrong")
	if err := store.CreateRun(want); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := store.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}

	assertRunEqual(t, got, want)
}

func TestGetRun_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun("does-not-exist")
	if err == nil {
		t.Fatal("expected error for non-existent run, got nil")
	}
}

// ---------------------------------------------------------------------------
// ListRuns
// ---------------------------------------------------------------------------

func TestListRuns_Empty(t *testing.T) {
	store := newTestStore(t)

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected 0 runs, got %d", len(runs))
	}
}

func TestListRuns_Multiple(t *testing.T) {
	store := newTestStore(t)

	r1 := makeRun("run-1", "first bug")
	r1.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r1.UpdatedAt = r1.CreatedAt

	r2 := makeRun("run-2", "second bug")
	r2.CreatedAt = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	r2.UpdatedAt = r2.CreatedAt

	for _, r := range []*runstore.Run{r1, r2} {
		if err := store.CreateRun(r); err != nil {
			t.Fatalf("CreateRun(%s): %v", r.ID, err)
		}
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	// Newest first.
	if runs[0].ID != "run-2" {
		t.Errorf("expected first run ID %q, got %q", "run-2", runs[0].ID)
	}
	if runs[1].ID != "run-1" {
		t.Errorf("expected second run ID %q, got %q", "run-1", runs[1].ID)
	}
}

// ---------------------------------------------------------------------------
// UpdateRun
// ---------------------------------------------------------------------------

func TestUpdateRun(t *testing.T) {
	store := newTestStore(t)

	run := makeRun("run-u", "cart total is wrong")
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	run.Status = runstore.StatusComplete
	run.Patch = "diff --git a/app/cart.py b/app/cart.py\n"

	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := store.GetRun("run-u")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != runstore.StatusComplete {
		t.Errorf("Status: want %q, got %q", runstore.StatusComplete, got.Status)
	}
	if got.Patch != run.Patch {
		t.Errorf("Patch: want %q, got %q", run.Patch, got.Patch)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt is zero after update")
	}
}

func TestUpdateRun_ErrorField(t *testing.T) {
	store := newTestStore(t)

	run := makeRun("run-err", "cart total is wrong")
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	run.Status = runstore.StatusError
	run.Error = "model endpoint unreachable"
	if err := store.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err := store.GetRun("run-err")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != runstore.StatusError {
		t.Errorf("Status: want %q, got %q", runstore.StatusError, got.Status)
	}
	if got.Error != "model endpoint unreachable" {
		t.Errorf("Error: want %q, got %q", "model endpoint unreachable", got.Error)
	}
}

// ---------------------------------------------------------------------------
// Events — AddEvent, GetEvents, afterID filtering
// ---------------------------------------------------------------------------

func TestAddAndGetEvents(t *testing.T) {
	store := newTestStore(t)

	run := makeRun("run-ev", "bug")
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	e1 := &runstore.Event{RunID: "run-ev", Type: "status", Data: "running", CreatedAt: now}
	e2 := &runstore.Event{RunID: "run-ev", Type: "stage", Data: "locate_files", CreatedAt: now}

	for _, e := range []*runstore.Event{e1, e2} {
		if err := store.AddEvent(e); err != nil {
			t.Fatalf("AddEvent: %v", err)
		}
	}

	// ID should be populated after insert.
	if e1.ID == 0 || e2.ID == 0 {
		t.Errorf("expected event IDs to be set, got %d and %d", e1.ID, e2.ID)
	}
	if e2.ID <= e1.ID {
		t.Errorf("expected e2.ID (%d) > e1.ID (%d)", e2.ID, e1.ID)
	}

	events, err := store.GetEvents("run-ev", 0)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "status" {
		t.Errorf("events[0].Type: want %q, got %q", "status", events[0].Type)
	}
	if events[1].Data != "locate_files" {
		t.Errorf("events[1].Data: want %q, got %q", "locate_files", events[1].Data)
	}
}

func TestGetEvents_AfterID(t *testing.T) {
	store := newTestStore(t)

	run := makeRun("run-af", "bug")
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	var ids []int64
	for i := 0; i < 5; i++ {
		e := &runstore.Event{
			RunID:     "run-af",
			Type:      "output",
			Data:      string(rune('A' + i)),
			CreatedAt: now,
		}
		if err := store.AddEvent(e); err != nil {
			t.Fatalf("AddEvent[%d]: %v", i, err)
		}
		ids = append(ids, e.ID)
	}

	events, err := store.GetEvents("run-af", ids[2])
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after id %d, got %d", ids[2], len(events))
	}
	if events[0].ID != ids[3] || events[1].ID != ids[4] {
		t.Errorf("unexpected event IDs: %d, %d", events[0].ID, events[1].ID)
	}
}

func TestGetEvents_NoEvents(t *testing.T) {
	store := newTestStore(t)

	run := makeRun("run-none", "bug")
	if err := store.CreateRun(run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	events, err := store.GetEvents("run-none", 0)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected 0 events, got %d", len(events))
	}
}

// ---------------------------------------------------------------------------
// EventBus
// ---------------------------------------------------------------------------

func TestEventBus_SubscribeAndPublish(t *testing.T) {
	bus := runstore.NewEventBus()
	ch := bus.Subscribe("run-1")

	event := &runstore.Event{
		ID:        1,
		RunID:     "run-1",
		Type:      "stage",
		Data:      "repair",
		CreatedAt: time.Now().UTC(),
	}

	bus.Publish("run-1", event)

	select {
	case got := <-ch:
		if got.ID != event.ID {
			t.Errorf("event ID: want %d, got %d", event.ID, got.ID)
		}
		if got.Data != "repair" {
			t.Errorf("event Data: want %q, got %q", "repair", got.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	bus.Unsubscribe("run-1", ch)
}

func TestEventBus_MultipleSubscribers(t *testing.T) {
	bus := runstore.NewEventBus()
	ch1 := bus.Subscribe("run-1")
	ch2 := bus.Subscribe("run-1")

	event := &runstore.Event{
		ID:        1,
		RunID:     "run-1",
		Type:      "status",
		Data:      "running",
		CreatedAt: time.Now().UTC(),
	}

	bus.Publish("run-1", event)

	for i, ch := range []chan *runstore.Event{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Data != "running" {
				t.Errorf("subscriber %d: Data: want %q, got %q", i, "running", got.Data)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: timed out waiting for event", i)
		}
	}

	bus.Unsubscribe("run-1", ch1)
	bus.Unsubscribe("run-1", ch2)
}

func TestEventBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := runstore.NewEventBus()
	ch := bus.Subscribe("run-1")

	bus.Unsubscribe("run-1", ch)

	_, open := <-ch
	if open {
		t.Error("expected channel to be closed after Unsubscribe")
	}
}

func TestEventBus_PublishWithoutSubscribers(t *testing.T) {
	bus := runstore.NewEventBus()

	// This must not panic.
	bus.Publish("no-sub", &runstore.Event{
		ID:    1,
		RunID: "no-sub",
		Type:  "output",
		Data:  "ignored",
	})
}

func TestEventBus_PublishDifferentRun(t *testing.T) {
	bus := runstore.NewEventBus()
	ch := bus.Subscribe("run-A")

	bus.Publish("run-B", &runstore.Event{
		ID:    1,
		RunID: "run-B",
		Type:  "output",
		Data:  "wrong run",
	})

	// ch for run-A should not receive anything published to run-B.
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event on run-A channel: %+v", ev)
	case <-time.After(50 * time.Millisecond):
		// Expected: nothing received.
	}

	bus.Unsubscribe("run-A", ch)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func assertRunEqual(t *testing.T, got, want *runstore.Run) {
	t.Helper()

	if got.ID != want.ID {
		t.Errorf("ID: want %q, got %q", want.ID, got.ID)
	}
	if got.BugDescription != want.BugDescription {
		t.Errorf("BugDescription: want %q, got %q", want.BugDescription, got.BugDescription)
	}
	if got.ProjectDir != want.ProjectDir {
		t.Errorf("ProjectDir: want %q, got %q", want.ProjectDir, got.ProjectDir)
	}
	if got.Model != want.Model {
		t.Errorf("Model: want %q, got %q", want.Model, got.Model)
	}
	if got.Status != want.Status {
		t.Errorf("Status: want %q, got %q", want.Status, got.Status)
	}
	if got.Error != want.Error {
		t.Errorf("Error: want %q, got %q", want.Error, got.Error)
	}
}
