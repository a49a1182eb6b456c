package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/domain"
)

func testTuning() config.TuningConfig {
	cfg := config.DefaultConfig().Tuning
	cfg.PageSize = 10
	cfg.MaxPageIterations = 20
	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeNode struct {
	header   domain.ListHeader
	children []domain.CatalogItem
}

// fakeBrowser models the remote catalog as a keyed node tree behind a
// single cursor, the way the real service behaves: Browse moves the
// cursor, LoadPage with an empty key reads the cursor node's children.
type fakeBrowser struct {
	mu     sync.Mutex
	nodes  map[string]*fakeNode
	cursor string

	browseCalls int
	loadCalls   int
	rootResets  int
	played      []playedRecord

	// browseDelay slows every Browse call down, for coalescing tests
	browseDelay time.Duration
	// failBrowse, when set, fails every Browse call
	failBrowse error
}

type playedRecord struct {
	itemKey string // variant key, or "current" for cursor playback
	target  string
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{nodes: map[string]*fakeNode{
		"root": {header: domain.ListHeader{Title: "Main Menu", ItemKey: "root"}},
	}}
}

// addNode registers a node and appends a child item pointing at it under
// parent. Returns the child's item key.
func (f *fakeBrowser) addNode(parent, key, title, subtitle string, hint domain.ItemHint) string {
	f.nodes[key] = &fakeNode{header: domain.ListHeader{Title: title, ItemKey: key}}
	p := f.nodes[parent]
	p.children = append(p.children, domain.CatalogItem{
		Title:    title,
		Subtitle: subtitle,
		ItemKey:  key,
		Hint:     hint,
	})
	p.header.TotalCount = len(p.children)
	return key
}

// addAlbum adds an album list node under parent with a play action whose
// variants include "Play Now".
func (f *fakeBrowser) addAlbum(parent, title, byline string) string {
	key := parent + "/" + title
	f.addNode(parent, key, title, byline, domain.HintList)
	actionKey := f.addNode(key, key+"/play", "Play Album", "", domain.HintActionList)
	f.addNode(actionKey, actionKey+"/now", "Play Now", "", domain.HintAction)
	f.addNode(actionKey, actionKey+"/queue", "Add to Queue", "", domain.HintAction)
	return key
}

func (f *fakeBrowser) Browse(ctx context.Context, opts domain.BrowseOptions) (*domain.ListHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browseDelay > 0 {
		time.Sleep(f.browseDelay)
	}
	if f.failBrowse != nil {
		return nil, f.failBrowse
	}

	f.browseCalls++
	key := opts.ItemKey
	if opts.RootReset {
		f.rootResets++
		key = "root"
	}

	node, ok := f.nodes[key]
	if !ok {
		return nil, fmt.Errorf("fake: no node %q", key)
	}
	f.cursor = key

	if opts.OutputTarget != "" {
		f.played = append(f.played, playedRecord{itemKey: key, target: opts.OutputTarget})
	}

	h := node.header
	return &h, nil
}

func (f *fakeBrowser) LoadPage(ctx context.Context, itemKey string, offset, count int) ([]domain.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loadCalls++
	key := itemKey
	if key == "" {
		key = f.cursor
	}
	node, ok := f.nodes[key]
	if !ok {
		return nil, fmt.Errorf("fake: no node %q", key)
	}

	if offset >= len(node.children) {
		return nil, nil
	}
	end := offset + count
	if end > len(node.children) {
		end = len(node.children)
	}
	out := make([]domain.CatalogItem, end-offset)
	copy(out, node.children[offset:end])
	return out, nil
}

func (f *fakeBrowser) FetchImage(ctx context.Context, imageKey string, opts domain.ImageOptions) (*domain.ImagePayload, error) {
	return &domain.ImagePayload{ContentType: "image/jpeg", Bytes: []byte(imageKey)}, nil
}

func (f *fakeBrowser) PlayFromCurrentPosition(ctx context.Context, outputTarget string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.played = append(f.played, playedRecord{itemKey: "current", target: outputTarget})
	return nil
}

func (f *fakeBrowser) playedTitles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.played))
	for i, p := range f.played {
		out[i] = p.itemKey
	}
	return out
}

// buildTestCatalog assembles a small but structurally complete catalog:
// genre directory with album counts and one expandable genre with
// subgenres, an artist directory, and a flat album list.
//
//	Main Menu
//	├── Genres
//	│   ├── Rock (30 Albums) → Albums, Classic Rock (12), Punk (5), Demos (1)
//	│   └── Jazz (4 Albums)  → Albums
//	├── Artists
//	│   ├── Caravan Palace → three albums
//	│   └── Lone Signal    → one album
//	└── Albums → six albums
func buildTestCatalog() *fakeBrowser {
	f := newFakeBrowser()

	f.addNode("root", "genres", "Genres", "", domain.HintList)
	f.addNode("root", "artists", "Artists", "", domain.HintList)
	f.addNode("root", "albums", "Albums", "", domain.HintList)

	f.addNode("genres", "genre/rock", "Rock", "30 Albums", domain.HintList)
	f.addNode("genres", "genre/jazz", "Jazz", "4 Albums", domain.HintList)

	f.addNode("genre/rock", "genre/rock/albums", "Albums", "", domain.HintList)
	f.addNode("genre/rock", "genre/rock/classic", "Classic Rock", "12 Albums", domain.HintList)
	f.addNode("genre/rock/classic", "genre/rock/classic/albums", "Albums", "", domain.HintList)
	f.addAlbum("genre/rock/classic/albums", "Machine Head", "Deep Purple")
	f.addNode("genre/rock", "genre/rock/punk", "Punk", "5 Albums", domain.HintList)
	f.addNode("genre/rock", "genre/rock/demos", "Demos", "1 Album", domain.HintList)
	f.addAlbum("genre/rock/albums", "Machine Head", "Deep Purple")
	f.addAlbum("genre/rock/albums", "Paranoid", "Black Sabbath")

	f.addNode("genre/jazz", "genre/jazz/albums", "Albums", "", domain.HintList)
	f.addAlbum("genre/jazz/albums", "Kind of Blue", "Miles Davis")

	f.addNode("artists", "artist/caravan", "Caravan Palace", "", domain.HintList)
	f.addAlbum("artist/caravan", "Panic", "Caravan Palace")
	f.addAlbum("artist/caravan", "Robot Face", "Caravan Palace")
	f.addAlbum("artist/caravan", "Chronologic", "Caravan Palace")

	f.addNode("artists", "artist/lone", "Lone Signal", "", domain.HintList)
	f.addAlbum("artist/lone", "First Contact", "Lone Signal")

	for _, a := range [][2]string{
		{"Machine Head", "Deep Purple"},
		{"Paranoid", "Black Sabbath"},
		{"Kind of Blue", "Miles Davis"},
		{"Panic", "Caravan Palace"},
		{"Robot Face", "Caravan Palace"},
		{"Chronologic", "Caravan Palace"},
	} {
		f.addAlbum("albums", a[0], a[1])
	}

	return f
}
