package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/domain"
)

// cursorGuard serializes access to the catalog's single browse cursor.
// Coalesced genre fetches and the artist queue worker acquire it blocking;
// the album-selection path uses TryAcquire and fails cleanly when another
// navigation sequence is in flight.
type cursorGuard struct {
	mu sync.Mutex
}

func (g *cursorGuard) Acquire() {
	g.mu.Lock()
}

func (g *cursorGuard) TryAcquire() bool {
	return g.mu.TryLock()
}

func (g *cursorGuard) Release() {
	g.mu.Unlock()
}

type matchMode int

const (
	// matchExact matches titles case-insensitively
	matchExact matchMode = iota
	// matchContains additionally accepts a case-insensitive substring hit
	matchContains
)

func titleMatches(item domain.CatalogItem, title string, mode matchMode) bool {
	if strings.EqualFold(item.Title, title) {
		return true
	}
	if mode == matchContains {
		return strings.Contains(strings.ToLower(item.Title), strings.ToLower(title))
	}
	return false
}

// navigator implements the shared browse patterns: bounded paged lookup of
// a named child, full child collection, and the play/image resolution that
// both the selector and the artist explorer end with.
//
// Callers must hold the cursor guard for the whole navigation sequence.
type navigator struct {
	browser domain.Browser
	cfg     config.TuningConfig
	logger  *slog.Logger
}

// findChild pages through the children of the node at the cursor looking
// for a title match. A missing node after full pagination is a
// NavigationError; hitting the iteration cap logs a degraded-results
// warning before reporting the same miss.
func (n *navigator) findChild(ctx context.Context, title string, mode matchMode) (*domain.CatalogItem, error) {
	pageSize := n.cfg.PageSize

	for page := 0; page < n.cfg.MaxPageIterations; page++ {
		items, err := n.browser.LoadPage(ctx, "", page*pageSize, pageSize)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, &domain.NavigationError{Node: title}
		}

		for i := range items {
			if titleMatches(items[i], title, mode) {
				return &items[i], nil
			}
		}

		if len(items) < pageSize {
			// Short page signals end-of-list
			return nil, &domain.NavigationError{Node: title}
		}
	}

	perr := &domain.ProtocolError{Node: title, Iterations: n.cfg.MaxPageIterations}
	n.logger.Warn("pagination cap reached, results degraded", "node", title, "pages", perr.Iterations)
	return nil, &domain.NavigationError{Node: title}
}

// collectChildren pages through all children of the node at the cursor.
// Hitting the iteration cap returns the partial result with a warning
// rather than failing.
func (n *navigator) collectChildren(ctx context.Context) ([]domain.CatalogItem, error) {
	pageSize := n.cfg.PageSize
	var all []domain.CatalogItem

	for page := 0; page < n.cfg.MaxPageIterations; page++ {
		items, err := n.browser.LoadPage(ctx, "", page*pageSize, pageSize)
		if err != nil {
			return nil, err
		}

		all = append(all, items...)
		if len(items) < pageSize {
			return all, nil
		}
	}

	n.logger.Warn("pagination cap reached, results degraded", "pages", n.cfg.MaxPageIterations, "collected", len(all))
	return all, nil
}

// descend browses into a child found at the cursor and returns its header
func (n *navigator) descend(ctx context.Context, title string, mode matchMode) (*domain.ListHeader, error) {
	child, err := n.findChild(ctx, title, mode)
	if err != nil {
		return nil, err
	}
	return n.browser.Browse(ctx, domain.BrowseOptions{ItemKey: child.ItemKey})
}

// resolveAndPlay navigates into a picked album, starts its playback, and
// returns the resolved image key. Playback prefers an explicit play action
// among the album's children, then the "play now" variant among that
// action's results; with no explicit action it falls back to playing from
// the current browse position.
func (n *navigator) resolveAndPlay(ctx context.Context, item domain.CatalogItem, outputTarget string) (string, error) {
	header, err := n.browser.Browse(ctx, domain.BrowseOptions{ItemKey: item.ItemKey})
	if err != nil {
		return "", err
	}

	children, err := n.browser.LoadPage(ctx, "", 0, n.cfg.PageSize)
	if err != nil {
		return "", err
	}

	imageKey := resolveImageKey(item, header, children)

	var playAction *domain.CatalogItem
	for i := range children {
		if children[i].Hint == domain.HintList {
			continue
		}
		if strings.Contains(strings.ToLower(children[i].Title), "play") {
			playAction = &children[i]
			break
		}
	}

	if playAction == nil {
		if err := n.browser.PlayFromCurrentPosition(ctx, outputTarget); err != nil {
			return "", err
		}
		return imageKey, nil
	}

	// Invoking the action surfaces its variants
	if _, err := n.browser.Browse(ctx, domain.BrowseOptions{ItemKey: playAction.ItemKey}); err != nil {
		return "", err
	}
	variants, err := n.browser.LoadPage(ctx, "", 0, n.cfg.PageSize)
	if err != nil {
		return "", err
	}
	if len(variants) == 0 {
		if err := n.browser.PlayFromCurrentPosition(ctx, outputTarget); err != nil {
			return "", err
		}
		return imageKey, nil
	}

	chosen := variants[0]
	for _, v := range variants {
		if strings.Contains(strings.ToLower(v.Title), "play now") {
			chosen = v
			break
		}
	}

	if _, err := n.browser.Browse(ctx, domain.BrowseOptions{ItemKey: chosen.ItemKey, OutputTarget: outputTarget}); err != nil {
		return "", err
	}
	return imageKey, nil
}

// resolveImageKey prefers the item's own image, then the list header's,
// then the first child exposing one.
func resolveImageKey(item domain.CatalogItem, header *domain.ListHeader, children []domain.CatalogItem) string {
	if item.ImageKey != "" {
		return item.ImageKey
	}
	if header != nil && header.ImageKey != "" {
		return header.ImageKey
	}
	for _, c := range children {
		if c.ImageKey != "" {
			return c.ImageKey
		}
	}
	return ""
}
