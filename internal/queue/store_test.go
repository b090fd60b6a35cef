package queue_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"scribed/internal/queue"
	"scribed/internal/testsupport"
	"scribed/internal/transcript"
)

func TestNewJobAssignsIdentifierAndDefaults(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	job, err := store.NewJob(context.Background(), queue.NewJobParams{
		InputPath:      "/tmp/staging/clip.mp4",
		SourceName:     "clip.mp4",
		Model:          "small",
		Language:       "en",
		ResponseFormat: transcript.FormatSRT,
		WordTimestamps: true,
	})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected assigned job ID")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}
	if job.ResponseFormat != transcript.FormatSRT {
		t.Fatalf("expected srt format, got %s", job.ResponseFormat)
	}
	if !job.WordTimestamps {
		t.Fatal("expected word timestamps flag to round-trip")
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestGetByIDUnknownReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	job, err := store.GetByID(context.Background(), "no-such-job")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestUpdateRoundTripsTerminalState(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/tmp/staging/talk.wav", "talk.wav")
	job.SetCompleted(`{"text":"hello"}`)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", reloaded.Status)
	}
	if reloaded.ResultJSON != `{"text":"hello"}` {
		t.Fatalf("unexpected result payload: %s", reloaded.ResultJSON)
	}
	if reloaded.LastHeartbeat != nil {
		t.Fatal("terminal jobs should not retain a heartbeat")
	}
}

func TestClaimNextTakesOldestPendingJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "/tmp/staging/a.mp3", "a.mp3")
	time.Sleep(2 * time.Millisecond)
	testsupport.NewJob(t, store, "/tmp/staging/b.mp3", "b.mp3")

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a claimed job")
	}
	if claimed.ID != first.ID {
		t.Fatalf("expected oldest job %s, got %s", first.ID, claimed.ID)
	}
	if claimed.Status != queue.StatusRunning {
		t.Fatalf("expected running status, got %s", claimed.Status)
	}
	if claimed.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to be set on claim")
	}

	reloaded, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.Status != queue.StatusRunning {
		t.Fatalf("claim not persisted, status %s", reloaded.Status)
	}
}

func TestClaimNextIdleQueueReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	claimed, err := store.ClaimNext(context.Background())
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed != nil {
		t.Fatalf("expected nil on idle queue, got %+v", claimed)
	}
}

func TestResetStuckRunningReturnsJobsToPending(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewJob(t, store, "/tmp/staging/a.mp3", "a.mp3")
	testsupport.NewJob(t, store, "/tmp/staging/b.mp3", "b.mp3")
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	reset, err := store.ResetStuckRunning(ctx)
	if err != nil {
		t.Fatalf("ResetStuckRunning: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset job, got %d", reset)
	}

	jobs, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected both jobs pending, got %d", len(jobs))
	}
	for _, job := range jobs {
		if job.LastHeartbeat != nil {
			t.Fatalf("job %s retained a heartbeat after reset", job.ID)
		}
	}
}

func TestUpdateHeartbeatAdvancesTimestamp(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewJob(t, store, "/tmp/staging/a.mp3", "a.mp3")
	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	initial := *claimed.LastHeartbeat

	time.Sleep(2 * time.Millisecond)
	if err := store.UpdateHeartbeat(ctx, claimed.ID); err != nil {
		t.Fatalf("UpdateHeartbeat: %v", err)
	}

	reloaded, err := store.GetByID(ctx, claimed.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reloaded.LastHeartbeat == nil || !reloaded.LastHeartbeat.After(initial) {
		t.Fatal("expected heartbeat to advance")
	}
}

func TestStatsAndHealthCountByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewJob(t, store, "/tmp/staging/a.mp3", "a.mp3")
	failed := testsupport.NewJob(t, store, "/tmp/staging/b.mp3", "b.mp3")
	failed.SetFailed("engine_error", "boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 2 || health.Pending != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestPollLifecycle(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	result, err := store.Poll(ctx, "unknown")
	if err != nil {
		t.Fatalf("Poll unknown: %v", err)
	}
	if result.Ready || result.Successful || string(result.Value) != "null" {
		t.Fatalf("unexpected poll for unknown job: %+v", result)
	}

	job := testsupport.NewJob(t, store, "/tmp/staging/a.mp3", "a.mp3")
	result, err = store.Poll(ctx, job.ID)
	if err != nil {
		t.Fatalf("Poll pending: %v", err)
	}
	if result.Ready {
		t.Fatal("pending job must not report ready")
	}

	job.SetCompleted(`{"text":"done"}`)
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}
	result, err = store.Poll(ctx, job.ID)
	if err != nil {
		t.Fatalf("Poll completed: %v", err)
	}
	if !result.Ready || !result.Successful {
		t.Fatalf("expected ready successful, got %+v", result)
	}
	if string(result.Value) != `{"text":"done"}` {
		t.Fatalf("unexpected value: %s", result.Value)
	}
}

func TestPollFailedJobReportsClassifiedError(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "/tmp/staging/a.mp3", "a.mp3")
	job.SetFailed("resource_exhausted", "engine ran out of memory")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	result, err := store.Poll(ctx, job.ID)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !result.Ready || result.Successful {
		t.Fatalf("expected ready unsuccessful, got %+v", result)
	}

	var payload struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(result.Value, &payload); err != nil {
		t.Fatalf("decode failure value: %v", err)
	}
	if payload.Error.Kind != "resource_exhausted" {
		t.Fatalf("unexpected kind %q", payload.Error.Kind)
	}
	if payload.Error.Message != "engine ran out of memory" {
		t.Fatalf("unexpected message %q", payload.Error.Message)
	}
}
