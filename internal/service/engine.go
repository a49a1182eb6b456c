package service

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/domain"
	"github.com/avlowe/cratedig/internal/store"
)

// Engine is the playback-selection core. It owns the browse cursor guard,
// the session listening history, the genre cache, the artist exploration
// queue and the cover-art cache, and exposes the operations the frontends
// call.
type Engine struct {
	cfg    config.TuningConfig
	logger *slog.Logger

	guard   *cursorGuard
	nav     *navigator
	history *SessionHistory

	genres   *GenreCache
	selector *Selector
	explorer *Explorer
	images   *ImageCache
	browser  domain.Browser
}

// New wires the engine together. snaps may come from store.NewSnapshotStore
// with an empty cache dir for memory-only operation. Close must be called
// to stop the exploration worker.
func New(browser domain.Browser, snaps *store.SnapshotStore, cfg config.TuningConfig, outputTarget string, logger *slog.Logger) *Engine {
	guard := &cursorGuard{}
	nav := &navigator{browser: browser, cfg: cfg, logger: logger}
	history := NewSessionHistory(cfg.MaxSessionHistory)
	artists := NewArtistHistory(cfg.MaxSessionHistory)
	return &Engine{
		cfg:      cfg,
		logger:   logger,
		guard:    guard,
		nav:      nav,
		history:  history,
		genres:   NewGenreCache(nav, guard, snaps, cfg, logger),
		selector: NewSelector(nav, guard, history, cfg, outputTarget, rand.New(rand.NewSource(time.Now().UnixNano())), logger),
		explorer: NewExplorer(nav, guard, artists, cfg, outputTarget, rand.New(rand.NewSource(time.Now().UnixNano()+1)), logger),
		images:   NewImageCache(cfg.ImageCacheSize),
		browser:  browser,
	}
}

// ListGenres returns the genre directory, served from cache within the TTL.
// Concurrent callers share a single catalog traversal.
func (e *Engine) ListGenres(ctx context.Context) ([]domain.GenreEntry, error) {
	return e.genres.ListGenres(ctx)
}

// GetSubgenres returns the subgenres of an expandable genre, cached
// alongside the genre list.
func (e *Engine) GetSubgenres(ctx context.Context, genre string) ([]domain.SubgenreEntry, error) {
	return e.genres.GetSubgenres(ctx, genre)
}

// PickRandomAlbum selects an unplayed album, weighted across filters by
// album count, starts playback and records the pick in the session history.
// It fails with ErrBrowseBusy if another navigation sequence holds the
// cursor.
func (e *Engine) PickRandomAlbum(ctx context.Context, filters []domain.GenreFilter) (*domain.Selection, error) {
	return e.selector.PickAndPlay(ctx, filters)
}

// ExploreArtist queues a request for a different album by the same artist.
// The result reports Ignored when the exploration backlog is full.
func (e *Engine) ExploreArtist(ctx context.Context, artist, currentTitle string) (*domain.ExplorationResult, error) {
	return e.explorer.Explore(ctx, artist, currentTitle)
}

// GetImage returns cover art, fetching and caching on miss.
func (e *Engine) GetImage(ctx context.Context, imageKey string, opts domain.ImageOptions) (*domain.ImagePayload, error) {
	if p := e.images.Get(imageKey); p != nil {
		return p, nil
	}

	payload, err := e.browser.FetchImage(ctx, imageKey, opts)
	if err != nil {
		return nil, err
	}
	e.images.Set(imageKey, payload)
	return payload, nil
}

// CachedImage returns cover art only if it is already cached
func (e *Engine) CachedImage(imageKey string) *domain.ImagePayload {
	return e.images.Get(imageKey)
}

// ClearSessionHistory forgets which albums have been played this session
func (e *Engine) ClearSessionHistory() {
	e.history.Clear()
	e.logger.Info("session history cleared")
}

// InvalidateGenreCache drops the cached genre directory, in memory and on
// disk, forcing the next ListGenres to traverse the catalog.
func (e *Engine) InvalidateGenreCache() {
	e.genres.Invalidate()
}

// ImageCacheStats reports cover-art cache occupancy and hit rate
func (e *Engine) ImageCacheStats() domain.CacheStats {
	return e.images.Stats()
}

// QueueDepth reports how many exploration requests are waiting
func (e *Engine) QueueDepth() int {
	return e.explorer.QueueDepth()
}

// HistoryLen reports how many albums the session has played
func (e *Engine) HistoryLen() int {
	return e.history.Len()
}

// ResetSession clears per-session state: listening history and the image
// cache. Cached genre data survives, it is tied to the catalog, not the
// session.
func (e *Engine) ResetSession() {
	e.history.Clear()
	e.images.Clear()
	e.logger.Info("session reset")
}

// Close drains the exploration queue and stops its worker
func (e *Engine) Close() {
	e.explorer.Close()
}
