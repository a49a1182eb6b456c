package domain

import "context"

// BrowseOptions select the target of a Browse call. RootReset moves the
// cursor back to the catalog root before resolving ItemKey; an empty
// ItemKey addresses the current cursor position.
type BrowseOptions struct {
	RootReset    bool
	ItemKey      string
	OutputTarget string
}

// Browser is the stateful browse/load surface of the remote catalog.
// The catalog exposes exactly one navigation cursor: every Browse call
// advances or resets it, and concurrent navigation sequences corrupt each
// other's state. Callers must serialize navigation externally.
type Browser interface {
	// Browse moves the cursor and returns the header of the resolved list
	Browse(ctx context.Context, opts BrowseOptions) (*ListHeader, error)

	// LoadPage returns a page of children of the addressed node.
	// An empty itemKey pages the node at the current cursor position.
	LoadPage(ctx context.Context, itemKey string, offset, count int) ([]CatalogItem, error)

	// FetchImage retrieves a cover-art blob by its opaque key
	FetchImage(ctx context.Context, imageKey string, opts ImageOptions) (*ImagePayload, error)

	// PlayFromCurrentPosition starts playback of the list at the cursor
	PlayFromCurrentPosition(ctx context.Context, outputTarget string) error
}
