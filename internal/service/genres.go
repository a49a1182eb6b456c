package service

import (
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/domain"
	"github.com/avlowe/cratedig/internal/store"
)

// albumCountPattern extracts the trailing album count the catalog embeds
// in genre subtitles, e.g. "1432 Albums" or "1 Album".
var albumCountPattern = regexp.MustCompile(`(?i)(\d+)\s+albums?\s*$`)

// GenreCache caches the flattened genre list and per-genre subgenre lists.
// Concurrent fetches are coalesced: the browse protocol is single-cursor,
// so a duplicate traversal would corrupt the in-flight one. A successful
// fetch is snapshotted to the store so a restart inside the freshness
// window skips the traversal entirely.
type GenreCache struct {
	nav    *navigator
	guard  *cursorGuard
	snaps  *store.SnapshotStore
	cfg    config.TuningConfig
	logger *slog.Logger

	group singleflight.Group

	mu        sync.Mutex
	genres    []domain.GenreEntry
	fetchedAt time.Time
	subgenres map[string][]domain.SubgenreEntry
}

// NewGenreCache creates the cache, seeding it from a persisted snapshot
// when one exists and is still inside the freshness window.
func NewGenreCache(nav *navigator, guard *cursorGuard, snaps *store.SnapshotStore, cfg config.TuningConfig, logger *slog.Logger) *GenreCache {
	c := &GenreCache{
		nav:       nav,
		guard:     guard,
		snaps:     snaps,
		cfg:       cfg,
		logger:    logger,
		subgenres: make(map[string][]domain.SubgenreEntry),
	}

	if snaps != nil {
		if snap, ok := snaps.GetGenres(); ok && time.Since(snap.FetchedAt) < cfg.GenreCacheTTL {
			c.genres = snap.Entries
			c.fetchedAt = snap.FetchedAt
			logger.Info("seeded genre cache from snapshot", "count", len(snap.Entries), "age", time.Since(snap.FetchedAt))
		}
	}

	return c
}

// ListGenres returns the flattened genre list, fetching it from the
// catalog when the cached copy is missing or stale. Callers arriving while
// a fetch is in flight receive that fetch's result.
func (c *GenreCache) ListGenres(ctx context.Context) ([]domain.GenreEntry, error) {
	c.mu.Lock()
	if c.genres != nil && time.Since(c.fetchedAt) < c.cfg.GenreCacheTTL {
		out := slices.Clone(c.genres)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("genres", func() (interface{}, error) {
		entries, err := c.fetchGenres(ctx)
		if err != nil {
			// No stale/partial population; the next call re-attempts
			return nil, err
		}

		c.mu.Lock()
		c.genres = entries
		c.fetchedAt = time.Now()
		c.subgenres = make(map[string][]domain.SubgenreEntry)
		c.mu.Unlock()

		if c.snaps != nil {
			c.snaps.InvalidateSubgenres()
			if err := c.snaps.SaveGenres(&store.GenreSnapshot{Entries: entries, FetchedAt: time.Now()}); err != nil {
				c.logger.Warn("failed to persist genre snapshot", "error", err)
			}
		}

		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(v.([]domain.GenreEntry)), nil
}

// GetSubgenres returns the cached subgenre list for a genre, fetching it
// on first use. Subgenres carry no TTL of their own; they are invalidated
// only alongside a parent refresh.
func (c *GenreCache) GetSubgenres(ctx context.Context, genreTitle string) ([]domain.SubgenreEntry, error) {
	c.mu.Lock()
	if entries, ok := c.subgenres[genreTitle]; ok {
		out := slices.Clone(entries)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if c.snaps != nil {
		if entries, ok := c.snaps.GetSubgenres(genreTitle); ok {
			c.mu.Lock()
			c.subgenres[genreTitle] = entries
			c.mu.Unlock()
			return slices.Clone(entries), nil
		}
	}

	v, err, _ := c.group.Do("subgenres:"+genreTitle, func() (interface{}, error) {
		entries, err := c.fetchSubgenres(ctx, genreTitle)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.subgenres[genreTitle] = entries
		c.mu.Unlock()

		if c.snaps != nil {
			if err := c.snaps.SaveSubgenres(genreTitle, entries); err != nil {
				c.logger.Warn("failed to persist subgenre snapshot", "genre", genreTitle, "error", err)
			}
		}

		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	return slices.Clone(v.([]domain.SubgenreEntry)), nil
}

// Invalidate clears both the genre and subgenre caches immediately,
// along with any persisted snapshots.
func (c *GenreCache) Invalidate() {
	c.mu.Lock()
	c.genres = nil
	c.fetchedAt = time.Time{}
	c.subgenres = make(map[string][]domain.SubgenreEntry)
	c.mu.Unlock()

	if c.snaps != nil {
		c.snaps.InvalidateAll()
	}
}

// fetchGenres traverses root → Genres and pages through its children
func (c *GenreCache) fetchGenres(ctx context.Context) ([]domain.GenreEntry, error) {
	c.guard.Acquire()
	defer c.guard.Release()

	start := time.Now()

	if _, err := c.nav.browser.Browse(ctx, domain.BrowseOptions{RootReset: true}); err != nil {
		return nil, err
	}
	if _, err := c.nav.descend(ctx, "Genres", matchContains); err != nil {
		return nil, err
	}

	items, err := c.nav.collectChildren(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.GenreEntry, 0, len(items))
	for _, item := range items {
		count := parseAlbumCount(item.Subtitle)
		if count == 0 {
			continue
		}
		entries = append(entries, domain.GenreEntry{
			Title:      item.Title,
			AlbumCount: count,
			Expandable: count >= c.cfg.ExpandableThreshold,
		})
	}

	entries = sortAndDedupeGenres(entries)
	c.logger.Info("fetched genre list", "count", len(entries), "elapsed", time.Since(start))
	return entries, nil
}

// fetchSubgenres traverses root → Genres → genre and filters its children
func (c *GenreCache) fetchSubgenres(ctx context.Context, genreTitle string) ([]domain.SubgenreEntry, error) {
	c.guard.Acquire()
	defer c.guard.Release()

	if _, err := c.nav.browser.Browse(ctx, domain.BrowseOptions{RootReset: true}); err != nil {
		return nil, err
	}
	if _, err := c.nav.descend(ctx, "Genres", matchContains); err != nil {
		return nil, err
	}
	if _, err := c.nav.descend(ctx, genreTitle, matchExact); err != nil {
		return nil, err
	}

	items, err := c.nav.collectChildren(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.SubgenreEntry, 0, len(items))
	for _, item := range items {
		if !item.IsList() {
			continue
		}
		count := parseAlbumCount(item.Subtitle)
		if count < c.cfg.SubgenreMinAlbums {
			continue
		}
		entries = append(entries, domain.SubgenreEntry{
			Title:       item.Title,
			AlbumCount:  count,
			ParentGenre: genreTitle,
			ItemKey:     item.ItemKey,
		})
	}

	c.logger.Debug("fetched subgenres", "genre", genreTitle, "count", len(entries))
	return entries, nil
}

// parseAlbumCount extracts the trailing album count from a subtitle,
// returning 0 when none is present
func parseAlbumCount(subtitle string) int {
	m := albumCountPattern.FindStringSubmatch(subtitle)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// sortAndDedupeGenres orders entries by descending album count and keeps
// the first occurrence of each title
func sortAndDedupeGenres(entries []domain.GenreEntry) []domain.GenreEntry {
	slices.SortStableFunc(entries, func(a, b domain.GenreEntry) int {
		return b.AlbumCount - a.AlbumCount
	})

	seen := make(map[string]struct{}, len(entries))
	out := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.Title]; ok {
			continue
		}
		seen[e.Title] = struct{}{}
		out = append(out, e)
	}
	return out
}
