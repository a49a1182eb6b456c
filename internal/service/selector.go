package service

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/domain"
)

// Selector picks an unplayed album at random, optionally weighted across
// genre filters, and resolves it to playback. It assumes the surrounding
// application does not trigger it concurrently; if that assumption is
// violated the overlapping call fails with ErrBrowseBusy instead of
// corrupting the browse cursor.
type Selector struct {
	nav     *navigator
	guard   *cursorGuard
	history *SessionHistory
	cfg     config.TuningConfig
	logger  *slog.Logger
	target  string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewSelector creates a selector drawing randomness from rng
func NewSelector(nav *navigator, guard *cursorGuard, history *SessionHistory, cfg config.TuningConfig, outputTarget string, rng *rand.Rand, logger *slog.Logger) *Selector {
	return &Selector{
		nav:     nav,
		guard:   guard,
		history: history,
		cfg:     cfg,
		logger:  logger,
		target:  outputTarget,
		rng:     rng,
	}
}

func (s *Selector) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// PickAndPlay selects an unplayed album, starts its playback, and records
// it in the session history. With no filters the unfiltered album list is
// used; otherwise one filter is sampled with album counts as weights.
func (s *Selector) PickAndPlay(ctx context.Context, filters []domain.GenreFilter) (*domain.Selection, error) {
	if !s.guard.TryAcquire() {
		return nil, domain.ErrBrowseBusy
	}
	defer s.guard.Release()

	header, err := s.navigateToAlbums(ctx, filters)
	if err != nil {
		return nil, err
	}

	total := header.TotalCount
	if total == 0 {
		return nil, domain.ErrCatalogEmpty
	}

	listKey := header.ItemKey
	chosen, err := s.sampleUnplayed(ctx, listKey, total)
	if err != nil {
		return nil, err
	}

	s.history.Record(domain.AlbumKey(chosen.Title, chosen.Subtitle))

	imageKey, err := s.nav.resolveAndPlay(ctx, *chosen, s.target)
	if err != nil {
		return nil, err
	}

	s.logger.Info("picked album", "title", chosen.Title, "byline", chosen.Subtitle)
	return &domain.Selection{
		AlbumTitle:   chosen.Title,
		ArtistByline: chosen.Subtitle,
		ImageKey:     imageKey,
	}, nil
}

// sampleUnplayed draws uniform random offsets until it finds an album not
// in the session history, within a bounded attempt budget. If the budget
// runs out the history is cleared and one final draw is accepted
// unconditionally.
func (s *Selector) sampleUnplayed(ctx context.Context, listKey string, total int) (*domain.CatalogItem, error) {
	attempts := min(total, s.cfg.MaxRandomAttempts) + s.history.Len()

	for i := 0; i < attempts; i++ {
		items, err := s.nav.browser.LoadPage(ctx, listKey, s.intn(total), 1)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			continue
		}
		item := items[0]
		if !s.history.Has(domain.AlbumKey(item.Title, item.Subtitle)) {
			return &item, nil
		}
	}

	// Every reachable candidate has been played this session
	s.history.Clear()
	s.logger.Info("session history exhausted, starting fresh")

	items, err := s.nav.browser.LoadPage(ctx, listKey, s.intn(total), 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrCatalogEmpty
	}
	return &items[0], nil
}

// navigateToAlbums resets the cursor and descends to the album list the
// filters address, returning its header
func (s *Selector) navigateToAlbums(ctx context.Context, filters []domain.GenreFilter) (*domain.ListHeader, error) {
	if _, err := s.nav.browser.Browse(ctx, domain.BrowseOptions{RootReset: true}); err != nil {
		return nil, err
	}

	if len(filters) == 0 {
		return s.nav.descend(ctx, "Albums", matchContains)
	}

	filter := s.pickFilter(filters)
	s.logger.Debug("weighted filter pick", "genre", filter.Title, "parent", filter.Parent, "weight", filter.AlbumCount)

	if _, err := s.nav.descend(ctx, "Genres", matchContains); err != nil {
		return nil, err
	}

	if filter.IsSubgenre() {
		if _, err := s.nav.descend(ctx, filter.Parent, matchExact); err != nil {
			return nil, err
		}
	}
	if _, err := s.nav.descend(ctx, filter.Title, matchExact); err != nil {
		return nil, err
	}

	return s.nav.descend(ctx, "Albums", matchContains)
}

// pickFilter samples one filter with album counts as weights. With no
// positive weight the pick degenerates to uniform.
func (s *Selector) pickFilter(filters []domain.GenreFilter) domain.GenreFilter {
	if len(filters) == 1 {
		return filters[0]
	}

	total := 0
	for _, f := range filters {
		if f.AlbumCount > 0 {
			total += f.AlbumCount
		}
	}
	if total <= 0 {
		return filters[s.intn(len(filters))]
	}

	weights := make([]int, len(filters))
	for i, f := range filters {
		if f.AlbumCount > 0 {
			weights[i] = f.AlbumCount
		}
	}
	return filters[weightedIndex(weights, s.intn(total))]
}

// weightedIndex returns the first index whose cumulative weight exceeds
// draw. A draw landing exactly on a cumulative boundary belongs to the
// next entry, so zero-weight entries can never win and proportions are
// exact for draw uniform in [0, total).
func weightedIndex(weights []int, draw int) int {
	cumulative := 0
	for i, w := range weights {
		cumulative += w
		if draw < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
