package service

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/domain"
)

func newTestExplorer(f *fakeBrowser, cfg config.TuningConfig) (*Explorer, *cursorGuard, *ArtistHistory) {
	guard := &cursorGuard{}
	nav := &navigator{browser: f, cfg: cfg, logger: testLogger()}
	history := NewArtistHistory(cfg.MaxSessionHistory)
	e := NewExplorer(nav, guard, history, cfg, "living-room", rand.New(rand.NewSource(11)), testLogger())
	return e, guard, history
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestExploreSkipsCurrentAlbum(t *testing.T) {
	f := buildTestCatalog()
	e, _, _ := newTestExplorer(f, testTuning())
	defer e.Close()

	result, err := e.Explore(context.Background(), "Caravan Palace", "Panic")
	if err != nil {
		t.Fatal(err)
	}
	if result.Ignored {
		t.Fatal("request was ignored")
	}
	if result.Selection.AlbumTitle == "Panic" {
		t.Fatal("explore returned the currently playing album")
	}
	if got := result.Selection.AlbumTitle; got != "Robot Face" && got != "Chronologic" {
		t.Fatalf("picked %q, want another Caravan Palace album", got)
	}

	played := f.playedTitles()
	if len(played) != 1 || !strings.HasSuffix(played[0], "/play/now") {
		t.Fatalf("playback not started: %v", played)
	}
}

func TestExploreRecordsArtistHistory(t *testing.T) {
	f := buildTestCatalog()
	e, _, history := newTestExplorer(f, testTuning())
	defer e.Close()

	result, err := e.Explore(context.Background(), "Caravan Palace", "Panic")
	if err != nil {
		t.Fatal(err)
	}
	if !history.Has("Caravan Palace", result.Selection.AlbumTitle) {
		t.Fatal("explored album missing from artist history")
	}
}

func TestExploreResetsExhaustedArtistHistory(t *testing.T) {
	f := buildTestCatalog()
	e, _, history := newTestExplorer(f, testTuning())
	defer e.Close()

	// Every alternative has been explored; the artist's history must be
	// cleared and a pick still produced, excluding only the current album.
	history.Record("Caravan Palace", "Robot Face")
	history.Record("Caravan Palace", "Chronologic")

	result, err := e.Explore(context.Background(), "Caravan Palace", "Panic")
	if err != nil {
		t.Fatal(err)
	}
	if got := result.Selection.AlbumTitle; got == "Panic" || got == "" {
		t.Fatalf("picked %q after history reset", got)
	}
}

func TestExploreNoAlternativeAlbum(t *testing.T) {
	f := buildTestCatalog()
	e, _, _ := newTestExplorer(f, testTuning())
	defer e.Close()

	_, err := e.Explore(context.Background(), "Lone Signal", "First Contact")
	if !errors.Is(err, domain.ErrNoAlternativeAlbum) {
		t.Fatalf("err = %v, want ErrNoAlternativeAlbum", err)
	}
}

func TestExploreUnknownArtist(t *testing.T) {
	f := buildTestCatalog()
	e, _, _ := newTestExplorer(f, testTuning())
	defer e.Close()

	_, err := e.Explore(context.Background(), "Nobody", "")
	if !domain.IsNavigationError(err) {
		t.Fatalf("err = %v, want a navigation error", err)
	}
}

// abandonedContext returns a context that is already cancelled. Exploring
// with it enqueues the request and returns immediately, which lets tests
// stage the queue deterministically.
func abandonedContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

func TestExploreIgnoresWhenQueueFull(t *testing.T) {
	f := buildTestCatalog()
	cfg := testTuning()
	cfg.ArtistQueueSize = 2
	e, guard, _ := newTestExplorer(f, cfg)
	defer e.Close()

	// Stall the worker so requests pile up behind it. The in-flight
	// request still counts toward the bound, so with capacity 2 the
	// third submission must be ignored.
	guard.Acquire()

	if _, err := e.Explore(abandonedContext(), "Caravan Palace", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("staging request: %v", err)
	}
	waitFor(t, "worker to pick up the first request", func() bool {
		return e.QueueDepth() == 0
	})
	if _, err := e.Explore(abandonedContext(), "Caravan Palace", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("staging request: %v", err)
	}

	result, err := e.Explore(context.Background(), "Lone Signal", "")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Ignored {
		t.Fatal("overflow request was not ignored")
	}
	if result.Reason == "" {
		t.Fatal("ignored result carries no reason")
	}

	guard.Release()
}

func TestExploreBoundCountsInFlightRequest(t *testing.T) {
	f := buildTestCatalog()
	cfg := testTuning()
	cfg.ArtistQueueSize = 1
	e, guard, _ := newTestExplorer(f, cfg)
	defer e.Close()

	guard.Acquire()

	if _, err := e.Explore(abandonedContext(), "Caravan Palace", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("staging request: %v", err)
	}
	waitFor(t, "worker to pick up the request", func() bool {
		return e.QueueDepth() == 0
	})

	// The only slot is taken by the request being processed
	result, err := e.Explore(context.Background(), "Lone Signal", "")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Ignored {
		t.Fatal("in-flight request did not count toward the bound")
	}

	guard.Release()

	// Once the backlog drains, submissions are accepted again
	waitFor(t, "backlog to drain", func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.depth == 0
	})
	if result, err := e.Explore(context.Background(), "Lone Signal", ""); err != nil || result.Ignored {
		t.Fatalf("post-drain explore = %+v, %v", result, err)
	}
}

func TestExploreAfterCloseFails(t *testing.T) {
	f := buildTestCatalog()
	e, _, _ := newTestExplorer(f, testTuning())
	e.Close()

	_, err := e.Explore(context.Background(), "Caravan Palace", "")
	if err == nil {
		t.Fatal("explore after close must fail")
	}
	if !errors.Is(err, errExplorerClosed) {
		t.Fatalf("err = %v, want errExplorerClosed", err)
	}
}

func TestExploreProcessesInOrder(t *testing.T) {
	f := buildTestCatalog()
	cfg := testTuning()
	cfg.ArtistQueueSize = 4
	e, guard, _ := newTestExplorer(f, cfg)

	guard.Acquire()

	if _, err := e.Explore(abandonedContext(), "Caravan Palace", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("staging request: %v", err)
	}
	waitFor(t, "worker to pick up the first request", func() bool {
		return e.QueueDepth() == 0
	})
	if _, err := e.Explore(abandonedContext(), "Lone Signal", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("staging request: %v", err)
	}

	guard.Release()
	e.Close() // waits for the backlog to drain

	played := f.playedTitles()
	if len(played) != 2 {
		t.Fatalf("played %d albums, want 2: %v", len(played), played)
	}
	if !strings.HasPrefix(played[0], "artist/caravan/") {
		t.Fatalf("first playback %q, want a Caravan Palace album", played[0])
	}
	if !strings.HasPrefix(played[1], "artist/lone/") {
		t.Fatalf("second playback %q, want a Lone Signal album", played[1])
	}
}

func TestExploreCompletesAbandonedRequest(t *testing.T) {
	f := buildTestCatalog()
	e, guard, _ := newTestExplorer(f, testTuning())
	defer e.Close()

	guard.Acquire()

	if _, err := e.Explore(abandonedContext(), "Caravan Palace", ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	// The request itself still runs to completion once the cursor frees up
	guard.Release()
	waitFor(t, "abandoned request to finish", func() bool {
		return len(f.playedTitles()) == 1
	})
}
