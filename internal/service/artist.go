package service

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/google/uuid"

	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/domain"
)

// queueFullReason is carried on the ignored result when the exploration
// backlog is at capacity. It is a signal, not a failure.
const queueFullReason = "exploration queue is full"

// errExplorerClosed reports an Explore call after Close
var errExplorerClosed = errors.New("explorer is closed")

type explorationOutcome struct {
	selection *domain.Selection
	err       error
}

type explorationRequest struct {
	id           string
	artist       string
	excludeTitle string
	result       chan explorationOutcome
}

// Explorer serializes "another album by this artist" requests through a
// FIFO queue with a bounded backlog. Exactly one request runs against the
// shared browse cursor at a time; a failure resolves only its own request
// and the queue keeps draining.
type Explorer struct {
	nav     *navigator
	guard   *cursorGuard
	history *ArtistHistory
	cfg     config.TuningConfig
	logger  *slog.Logger
	target  string

	requests chan *explorationRequest
	wg       sync.WaitGroup

	// mu guards depth and closed. depth counts every pending request,
	// including the one the worker is currently processing, so the
	// backlog bound covers in-flight work.
	mu     sync.Mutex
	depth  int
	closed bool

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewExplorer creates the explorer and starts its worker goroutine.
// Call Close to drain and stop it.
func NewExplorer(nav *navigator, guard *cursorGuard, history *ArtistHistory, cfg config.TuningConfig, outputTarget string, rng *rand.Rand, logger *slog.Logger) *Explorer {
	e := &Explorer{
		nav:      nav,
		guard:    guard,
		history:  history,
		cfg:      cfg,
		logger:   logger,
		target:   outputTarget,
		requests: make(chan *explorationRequest, cfg.ArtistQueueSize),
		rng:      rng,
	}

	e.wg.Add(1)
	go e.worker()

	return e
}

// Explore queues a request for a different album by artist, excluding the
// currently playing title. The pending bound counts the request being
// processed: once ArtistQueueSize requests are pending the call yields an
// immediate ignored result. Otherwise it blocks until the request is
// processed or ctx is done; an abandoned request is still processed to
// completion so the browse cursor is never left mid-sequence.
func (e *Explorer) Explore(ctx context.Context, artist, excludeTitle string) (*domain.ExplorationResult, error) {
	req := &explorationRequest{
		id:           uuid.NewString(),
		artist:       artist,
		excludeTitle: excludeTitle,
		result:       make(chan explorationOutcome, 1),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, errExplorerClosed
	}
	if e.depth >= e.cfg.ArtistQueueSize {
		e.mu.Unlock()
		e.logger.Info("exploration ignored, queue full", "artist", artist)
		return &domain.ExplorationResult{Ignored: true, Reason: queueFullReason}, nil
	}
	e.depth++
	// depth <= cap(requests), the send cannot block
	e.requests <- req
	e.mu.Unlock()
	e.logger.Debug("exploration queued", "request", req.id, "artist", artist)

	select {
	case out := <-req.result:
		if out.err != nil {
			return nil, out.err
		}
		return &domain.ExplorationResult{Selection: out.selection}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// QueueDepth returns the number of queued, not-yet-started requests
func (e *Explorer) QueueDepth() int {
	return len(e.requests)
}

// Close stops accepting requests and waits for the backlog to drain
func (e *Explorer) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.requests)
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// worker drains the queue strictly FIFO. Each request completes fully,
// success or failure, before the next starts.
func (e *Explorer) worker() {
	defer e.wg.Done()

	// Requests run under a background context: callers that stop waiting
	// must not abort a navigation sequence halfway through.
	ctx := context.Background()

	for req := range e.requests {
		selection, err := e.process(ctx, req)
		e.mu.Lock()
		e.depth--
		e.mu.Unlock()
		if err != nil {
			e.logger.Warn("exploration failed", "request", req.id, "artist", req.artist, "error", err)
		}
		req.result <- explorationOutcome{selection: selection, err: err}
	}
}

func (e *Explorer) process(ctx context.Context, req *explorationRequest) (*domain.Selection, error) {
	e.guard.Acquire()
	defer e.guard.Release()

	chosen, err := e.resolve(ctx, req.artist, req.excludeTitle)
	if err != nil {
		return nil, err
	}

	e.history.Record(req.artist, chosen.Title)

	imageKey, err := e.nav.resolveAndPlay(ctx, *chosen, e.target)
	if err != nil {
		return nil, err
	}

	e.logger.Info("exploration picked album", "request", req.id, "artist", req.artist, "title", chosen.Title)
	return &domain.Selection{
		AlbumTitle:   chosen.Title,
		ArtistByline: chosen.Subtitle,
		ImageKey:     imageKey,
	}, nil
}

// resolve locates the artist node and samples one album the listener has
// not just heard. If every album is excluded, the artist's history alone
// is cleared and the exclusion retried with just the current title.
func (e *Explorer) resolve(ctx context.Context, artist, excludeTitle string) (*domain.CatalogItem, error) {
	if _, err := e.nav.browser.Browse(ctx, domain.BrowseOptions{RootReset: true}); err != nil {
		return nil, err
	}
	if _, err := e.nav.descend(ctx, "Artists", matchContains); err != nil {
		return nil, err
	}
	if _, err := e.nav.descend(ctx, artist, matchExact); err != nil {
		return nil, err
	}

	children, err := e.nav.collectChildren(ctx)
	if err != nil {
		return nil, err
	}

	albums := make([]domain.CatalogItem, 0, len(children))
	for _, c := range children {
		if c.Hint == domain.HintList {
			albums = append(albums, c)
		}
	}

	candidates := e.filterCandidates(albums, artist, excludeTitle, true)
	if len(candidates) == 0 {
		e.history.ClearArtist(artist)
		candidates = e.filterCandidates(albums, artist, excludeTitle, false)
	}
	if len(candidates) == 0 {
		return nil, domain.ErrNoAlternativeAlbum
	}

	e.rngMu.Lock()
	pick := candidates[e.rng.Intn(len(candidates))]
	e.rngMu.Unlock()

	return &pick, nil
}

// filterCandidates drops the currently playing title always, and played
// titles when useHistory is set
func (e *Explorer) filterCandidates(albums []domain.CatalogItem, artist, excludeTitle string, useHistory bool) []domain.CatalogItem {
	out := make([]domain.CatalogItem, 0, len(albums))
	for _, a := range albums {
		if a.Title == excludeTitle {
			continue
		}
		if useHistory && e.history.Has(artist, a.Title) {
			continue
		}
		out = append(out, a)
	}
	return out
}
