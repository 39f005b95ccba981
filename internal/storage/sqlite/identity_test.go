package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/julianstephens/anchor/internal/models"
)

func TestCheckinUpsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m, err := store.AddIdentityMetric(models.IdentityMetric{Name: "Athlete"})
	if err != nil {
		t.Fatalf("failed to add metric: %v", err)
	}

	if _, err := store.SaveCheckin(models.IdentityCheckin{MetricID: m.ID, Day: "2025-01-02", Score: 2}); err != nil {
		t.Fatalf("failed to save check-in: %v", err)
	}
	if _, err := store.SaveCheckin(models.IdentityCheckin{MetricID: m.ID, Day: "2025-01-02", Score: 4, Note: "better"}); err != nil {
		t.Fatalf("failed to save check-in: %v", err)
	}
	if _, err := store.SaveCheckin(models.IdentityCheckin{MetricID: m.ID, Day: "2025-01-05", Score: 5}); err != nil {
		t.Fatalf("failed to save check-in: %v", err)
	}

	checkins, err := store.GetCheckinsBetween(ctx, "2025-01-01", "2025-01-04")
	if err != nil {
		t.Fatalf("failed to get check-ins: %v", err)
	}
	if len(checkins) != 1 {
		t.Fatalf("expected 1 check-in in range, got %d", len(checkins))
	}
	if checkins[0].Score != 4 || checkins[0].Note != "better" {
		t.Errorf("expected the second save to replace the first, got %+v", checkins[0])
	}

	all, err := store.GetCheckinsBetween(ctx, "2025-01-01", "2025-01-05")
	if err != nil {
		t.Fatalf("failed to get check-ins: %v", err)
	}
	if len(all) != 2 || all[1].Day != "2025-01-05" {
		t.Errorf("expected inclusive bounds ordered by day, got %+v", all)
	}
}

func TestIdentityMetricArchive(t *testing.T) {
	store := setupTestStore(t)

	a, err := store.AddIdentityMetric(models.IdentityMetric{Name: "Writer"})
	if err != nil {
		t.Fatalf("failed to add metric: %v", err)
	}
	if _, err := store.AddIdentityMetric(models.IdentityMetric{Name: "Runner"}); err != nil {
		t.Fatalf("failed to add metric: %v", err)
	}
	if err := store.ArchiveIdentityMetric(a.ID); err != nil {
		t.Fatalf("failed to archive metric: %v", err)
	}

	active, err := store.GetIdentityMetrics(context.Background())
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	if len(active) != 1 || active[0].Name != "Runner" {
		t.Errorf("expected only the active metric, got %+v", active)
	}
	all, err := store.GetAllIdentityMetrics(true)
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 metrics including archived, got %d", len(all))
	}
}

func TestRecentReflections(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, week := range []string{"2025-01-05", "2025-01-19", "2025-01-12"} {
		if _, err := store.SaveReflection(models.WeeklyReflection{WeekStart: week, Content: "week of " + week}); err != nil {
			t.Fatalf("failed to save reflection: %v", err)
		}
	}
	if _, err := store.SaveReflection(models.WeeklyReflection{WeekStart: "2025-01-12", Content: "rewritten"}); err != nil {
		t.Fatalf("failed to save reflection: %v", err)
	}

	recent, err := store.GetRecentReflections(ctx, 2)
	if err != nil {
		t.Fatalf("failed to get reflections: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 reflections, got %d", len(recent))
	}
	if recent[0].WeekStart != "2025-01-19" || recent[1].WeekStart != "2025-01-12" {
		t.Errorf("expected newest weeks first, got %s, %s", recent[0].WeekStart, recent[1].WeekStart)
	}
	if recent[1].Content != "rewritten" {
		t.Errorf("expected the reflection to be replaced, got %q", recent[1].Content)
	}

	none, err := store.GetRecentReflections(ctx, 0)
	if err != nil || len(none) != 0 {
		t.Errorf("expected no reflections for limit 0, got %d, %v", len(none), err)
	}
}

func TestCompletedTasksSince(t *testing.T) {
	store := setupTestStore(t)

	base := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"old", "recent", "newest"} {
		if _, err := store.AddCompletedTask(models.CompletedTask{Title: title, CompletedAt: base.AddDate(0, 0, i*10)}); err != nil {
			t.Fatalf("failed to add task: %v", err)
		}
	}

	tasks, err := store.GetCompletedTasks(base.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("failed to get tasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "recent" || tasks[1].Title != "newest" {
		t.Errorf("unexpected tasks %+v", tasks)
	}
}
