package analysiscache_test

import (
	"context"
	"testing"
	"time"

	"clipsight/internal/queue"
	"clipsight/internal/testsupport"
)

func TestStoreRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	if _, found, err := store.Lookup(ctx, "missing"); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	report := &queue.AnalysisReport{
		Summary:   "A sourdough tutorial.",
		Topics:    []string{"baking"},
		Sentiment: "positive",
	}
	if err := store.Store(ctx, "abc123", report); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	got, found, err := store.Lookup(ctx, "abc123")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if !found {
		t.Fatal("expected hit")
	}
	if got.Summary != report.Summary || got.Sentiment != report.Sentiment {
		t.Fatalf("unexpected cached report %+v", got)
	}

	// Upsert replaces the previous payload.
	report.Summary = "Updated summary."
	if err := store.Store(ctx, "abc123", report); err != nil {
		t.Fatalf("Store upsert returned error: %v", err)
	}
	got, _, err = store.Lookup(ctx, "abc123")
	if err != nil {
		t.Fatalf("Lookup returned error: %v", err)
	}
	if got.Summary != "Updated summary." {
		t.Fatalf("expected upserted summary, got %q", got.Summary)
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheTTL(1))
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	if err := store.Store(ctx, "stale", &queue.AnalysisReport{Summary: "old"}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	if _, found, err := store.Lookup(ctx, "stale"); err != nil || found {
		t.Fatalf("expected expired entry to miss, got found=%v err=%v", found, err)
	}
}

func TestStoreValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	if err := store.Store(ctx, "", &queue.AnalysisReport{Summary: "x"}); err == nil {
		t.Fatal("expected error for empty media id")
	}
	if err := store.Store(ctx, "abc", nil); err == nil {
		t.Fatal("expected error for nil report")
	}
	if _, found, err := store.Lookup(ctx, ""); err != nil || found {
		t.Fatalf("empty media id must miss, got found=%v err=%v", found, err)
	}
}

func TestJobArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	first := queue.Snapshot{
		ID:     "job-1",
		URL:    "https://example.com/a",
		Status: queue.StatusCompleted,
	}
	second := queue.Snapshot{
		ID:        "job-2",
		URL:       "https://example.com/b",
		Status:    queue.StatusFailed,
		LastError: "yt-dlp exited with status 1",
	}
	if err := store.ArchiveJob(ctx, first); err != nil {
		t.Fatalf("ArchiveJob returned error: %v", err)
	}
	if err := store.ArchiveJob(ctx, second); err != nil {
		t.Fatalf("ArchiveJob returned error: %v", err)
	}

	snapshots, err := store.ArchivedJobs(ctx, 10)
	if err != nil {
		t.Fatalf("ArchivedJobs returned error: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("expected 2 archived jobs, got %d", len(snapshots))
	}
	byID := map[string]queue.Snapshot{}
	for _, snapshot := range snapshots {
		byID[snapshot.ID] = snapshot
	}
	if byID["job-2"].LastError != "yt-dlp exited with status 1" {
		t.Fatalf("unexpected archived snapshot %+v", byID["job-2"])
	}
}

func TestPrune(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheTTL(1))
	store := testsupport.MustOpenCache(t, cfg)
	ctx := context.Background()

	if err := store.Store(ctx, "old", &queue.AnalysisReport{Summary: "old"}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)
	if err := store.Store(ctx, "fresh", &queue.AnalysisReport{Summary: "fresh"}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	removed, err := store.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", removed)
	}
	if _, found, _ := store.Lookup(ctx, "fresh"); !found {
		t.Fatal("fresh entry must survive prune")
	}
}
