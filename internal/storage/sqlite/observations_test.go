package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/julianstephens/anchor/internal/models"
	"github.com/julianstephens/anchor/internal/storage"
)

const testUser = "local"

func obs(text, dateRef string, confidence int) models.Observation {
	return models.Observation{
		Scope:         models.ScopeDaily,
		AnalysisDepth: models.Depth7Day,
		Category:      models.CategoryHabitTrend,
		Text:          text,
		DateRef:       dateRef,
		Confidence:    confidence,
	}
}

func insert(t *testing.T, store *Store, userID string, items ...models.Observation) []string {
	t.Helper()
	ids, err := store.InsertObservations(context.Background(), userID, items)
	if err != nil {
		t.Fatalf("failed to insert observations: %v", err)
	}
	if len(ids) != len(items) {
		t.Fatalf("expected %d ids, got %d", len(items), len(ids))
	}
	return ids
}

func texts(items []models.Observation) []string {
	out := make([]string, len(items))
	for i, o := range items {
		out[i] = o.Text
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestActiveObservationOrdering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	insert(t, store, testUser, obs("jan1", "2025-01-01", 3), obs("jan3-a", "2025-01-03", 3), obs("jan2", "2025-01-02", 3))
	insert(t, store, testUser, obs("jan3-b", "2025-01-03", 1))
	insert(t, store, "someone-else", obs("other", "2025-01-09", 5))

	active, err := store.GetActiveObservations(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("failed to get active observations: %v", err)
	}
	want := []string{"jan3-b", "jan3-a", "jan2", "jan1"}
	if got := texts(active); !equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	limited, err := store.GetActiveObservations(ctx, testUser, 2)
	if err != nil {
		t.Fatalf("failed to get active observations: %v", err)
	}
	if got := texts(limited); !equal(got, want[:2]) {
		t.Errorf("expected %v, got %v", want[:2], got)
	}
}

func TestInsertObservationsRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	o := obs("sleep drives training", "2025-01-04", 4)
	o.Category = models.CategoryCorrelation
	o.EntityRefs = []models.EntityRef{{Type: models.EntityHabit, ID: "h1"}, {Type: models.EntityIdentityMetric, ID: "m1"}}
	ids := insert(t, store, testUser, o)

	got, err := store.GetObservation(ctx, testUser, ids[0])
	if err != nil {
		t.Fatalf("failed to get observation: %v", err)
	}
	if got.UserID != testUser || got.Category != models.CategoryCorrelation || got.Confidence != 4 || got.DateRef != "2025-01-04" {
		t.Errorf("unexpected observation %+v", got)
	}
	if len(got.EntityRefs) != 2 || got.EntityRefs[1].Type != models.EntityIdentityMetric {
		t.Errorf("unexpected entity refs %+v", got.EntityRefs)
	}
	if !got.IsActive() || got.CreatedAt.IsZero() {
		t.Errorf("expected a fresh active observation, got %+v", got)
	}

	if _, err := store.GetObservation(ctx, "someone-else", ids[0]); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected observations to be user scoped, got %v", err)
	}

	byDate, err := store.GetObservationsByDateRef(ctx, testUser, "2025-01-04")
	if err != nil {
		t.Fatalf("failed to get by date ref: %v", err)
	}
	if len(byDate) != 1 || byDate[0].ID != ids[0] {
		t.Errorf("unexpected observations by date %+v", byDate)
	}
}

func TestSupersedeKeepsDismissalState(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ids := insert(t, store, testUser, obs("a", "2025-01-01", 3), obs("b", "2025-01-02", 3))
	summary := insert(t, store, testUser, obs("summary", "2025-01-09", 4))

	if err := store.SupersedeObservations(ctx, testUser, ids, summary[0]); err != nil {
		t.Fatalf("failed to supersede: %v", err)
	}

	active, err := store.GetActiveObservations(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("failed to get active observations: %v", err)
	}
	if got := texts(active); !equal(got, []string{"summary"}) {
		t.Errorf("expected only the summary to stay active, got %v", got)
	}

	for _, id := range ids {
		o, err := store.GetObservation(ctx, testUser, id)
		if err != nil {
			t.Fatalf("expected superseded observation to persist: %v", err)
		}
		if o.SupersededBy != summary[0] || o.Dismissed {
			t.Errorf("unexpected superseded observation %+v", o)
		}
	}
}

func TestPruneObservations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	insert(t, store, testUser,
		obs("old-low", "2025-01-01", 1),
		obs("old-high", "2025-01-01", 5),
		obs("mid", "2025-01-02", 2),
		obs("new-a", "2025-01-03", 3),
		obs("new-b", "2025-01-03", 3),
	)
	kept := insert(t, store, testUser, obs("dismissed", "2024-12-01", 1), obs("superseded", "2024-12-01", 1))
	if err := store.DismissObservation(ctx, testUser, kept[0], models.DismissOutdated, ""); err != nil {
		t.Fatalf("failed to dismiss: %v", err)
	}
	if err := store.SupersedeObservations(ctx, testUser, kept[1:], "x"); err != nil {
		t.Fatalf("failed to supersede: %v", err)
	}

	deleted, err := store.PruneObservations(ctx, testUser, 3)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 pruned, got %d", deleted)
	}

	active, err := store.GetActiveObservations(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("failed to get active observations: %v", err)
	}
	if got := texts(active); !equal(got, []string{"new-b", "new-a", "mid"}) {
		t.Errorf("unexpected survivors %v", got)
	}
	for _, id := range kept {
		if _, err := store.GetObservation(ctx, testUser, id); err != nil {
			t.Errorf("expected dismissed and superseded rows to survive pruning: %v", err)
		}
	}

	deleted, err = store.PruneObservations(ctx, testUser, 10)
	if err != nil || deleted != 0 {
		t.Errorf("expected no-op prune under cap, got %d, %v", deleted, err)
	}
}

func TestGetLastAnalysisDate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.GetLastAnalysisDate(ctx, testUser, models.Depth30Day); err != nil || ok {
		t.Fatalf("expected no analysis date yet, got ok=%v err=%v", ok, err)
	}

	weekly := obs("weekly", "2025-01-08", 3)
	weekly.Scope = models.ScopeWeekly
	weekly.AnalysisDepth = models.Depth30Day
	insert(t, store, testUser, obs("daily", "2025-01-10", 3), weekly, obs("daily-old", "2025-01-02", 3))

	tests := []struct {
		depth  models.AnalysisDepth
		want   string
		wantOK bool
	}{
		{models.Depth7Day, "2025-01-10", true},
		{models.Depth30Day, "2025-01-08", true},
		{models.DepthFull, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.depth), func(t *testing.T) {
			got, ok, err := store.GetLastAnalysisDate(ctx, testUser, tt.depth)
			if err != nil {
				t.Fatalf("failed to get last analysis date: %v", err)
			}
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("expected (%q, %v), got (%q, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestDismissAndRestore(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ids := insert(t, store, testUser, obs("first", "2025-01-01", 3), obs("second", "2025-01-02", 3))

	if err := store.DismissObservation(ctx, testUser, ids[0], models.DismissIncorrect, "I was travelling"); err != nil {
		t.Fatalf("failed to dismiss: %v", err)
	}
	if err := store.DismissObservation(ctx, testUser, ids[1], models.DismissIntentional, ""); err != nil {
		t.Fatalf("failed to dismiss: %v", err)
	}

	dismissed, err := store.GetDismissedObservations(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("failed to get dismissed: %v", err)
	}
	if len(dismissed) != 2 {
		t.Fatalf("expected 2 dismissed, got %d", len(dismissed))
	}
	var first models.Observation
	for _, o := range dismissed {
		if o.ID == ids[0] {
			first = o
		}
	}
	if first.DismissReason != models.DismissIncorrect || first.DismissNote != "I was travelling" || first.DismissedAt == nil {
		t.Errorf("unexpected dismissal %+v", first)
	}

	active, err := store.GetActiveObservations(ctx, testUser, 0)
	if err != nil {
		t.Fatalf("failed to get active observations: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected dismissed observations to leave the active set, got %v", texts(active))
	}

	if err := store.RestoreObservation(ctx, testUser, ids[0]); err != nil {
		t.Fatalf("failed to restore: %v", err)
	}
	restored, err := store.GetObservation(ctx, testUser, ids[0])
	if err != nil {
		t.Fatalf("failed to get observation: %v", err)
	}
	if !restored.IsActive() || restored.DismissReason != "" || restored.DismissNote != "" {
		t.Errorf("expected dismissal fields to be cleared, got %+v", restored)
	}
}

func TestDismissErrors(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	ids := insert(t, store, testUser, obs("only", "2025-01-01", 3))

	if err := store.DismissObservation(ctx, testUser, "missing", models.DismissOutdated, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.DismissObservation(ctx, testUser, ids[0], models.DismissReason("bored"), ""); err == nil {
		t.Error("expected an invalid reason to be rejected")
	}
	if err := store.RestoreObservation(ctx, "someone-else", ids[0]); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
}

func TestInsertObservationsHonorsCancelledContext(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.InsertObservations(ctx, testUser, []models.Observation{obs("late", "2025-01-01", 3)}); err == nil {
		t.Fatal("expected error for cancelled context")
	}

	active, err := store.GetActiveObservations(context.Background(), testUser, 0)
	if err != nil {
		t.Fatalf("failed to get active observations: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no observations, got %v", texts(active))
	}
}
