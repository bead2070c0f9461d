package repo_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"careline/internal/config"
	"careline/internal/db"
	"careline/internal/migrate"
	"careline/internal/repo"
	"careline/internal/sim"
)

func newTestRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}, context.Background()
}

func smallRun(t *testing.T) *sim.Result {
	t.Helper()
	cfg := config.Simulation{
		StartDate:               "2024-01-01",
		Months:                  1,
		Seed:                    42,
		DiagnosticPanelMonths:   []int{1},
		AdherenceProbability:    0.8,
		MaxMemberThreadsPerWeek: 3,
		TravelWeekEveryNWeeks:   4,
		ExerciseUpdateDays:      14,
	}
	s, err := sim.New(cfg)
	if err != nil {
		t.Fatalf("new simulator: %v", err)
	}
	res, err := s.Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestSaveAndReadBackRun(t *testing.T) {
	r, ctx := newTestRepo(t)
	res := smallRun(t)
	summary := repo.RunSummary{
		ID:        "RUN-deadbeef",
		CreatedAt: "2024-02-01T00:00:00Z",
		Seed:      42,
		StartDate: "2024-01-01",
		Months:    1,
	}
	if err := r.SaveRun(ctx, summary, res); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, err := r.GetRun(ctx, "RUN-deadbeef")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.MessageCount != len(res.Messages) || got.TestCount != len(res.Tests) {
		t.Fatalf("summary counts %+v do not match result", got)
	}

	back, err := r.Result(ctx, "RUN-deadbeef")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !reflect.DeepEqual(back.Messages, res.Messages) {
		t.Error("messages did not round-trip")
	}
	if !reflect.DeepEqual(back.Decisions, res.Decisions) {
		t.Error("decisions did not round-trip")
	}
	if !reflect.DeepEqual(back.Tests, res.Tests) {
		t.Error("tests did not round-trip")
	}
	if !reflect.DeepEqual(back.Metrics, res.Metrics) {
		t.Error("metrics did not round-trip")
	}
}

func TestLatestRun(t *testing.T) {
	r, ctx := newTestRepo(t)
	res := smallRun(t)
	for i, id := range []string{"RUN-11111111", "RUN-22222222"} {
		summary := repo.RunSummary{
			ID:        id,
			CreatedAt: "2024-02-0" + string(rune('1'+i)) + "T00:00:00Z",
			Seed:      42,
			StartDate: "2024-01-01",
			Months:    1,
		}
		if err := r.SaveRun(ctx, summary, res); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	latest, err := r.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != "RUN-22222222" {
		t.Fatalf("latest = %s", latest.ID)
	}
	runs, err := r.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "RUN-22222222" {
		t.Fatalf("unexpected list order: %+v", runs)
	}
}

func TestGetRunNotFound(t *testing.T) {
	r, ctx := newTestRepo(t)
	_, err := r.GetRun(ctx, "RUN-missing")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err = r.LatestRun(ctx)
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty archive, got %v", err)
	}
}
