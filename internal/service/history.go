package service

import "sync"

// SessionHistory is a bounded, insertion-ordered set of album keys.
// When the capacity is exceeded the oldest entries are evicted first.
// Lifetime is the process lifetime; there is no persistence.
type SessionHistory struct {
	mu    sync.Mutex
	max   int
	order []string
	seen  map[string]struct{}
}

// NewSessionHistory creates an empty history with the given capacity.
// A capacity below 1 is treated as 1.
func NewSessionHistory(max int) *SessionHistory {
	if max < 1 {
		max = 1
	}
	return &SessionHistory{
		max:  max,
		seen: make(map[string]struct{}),
	}
}

// Has reports whether key has been recorded
func (h *SessionHistory) Has(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, ok := h.seen[key]
	return ok
}

// Record appends key, evicting the oldest entries if the capacity would
// be exceeded. Recording a key that is already present is a no-op.
func (h *SessionHistory) Record(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.seen[key]; ok {
		return
	}

	h.order = append(h.order, key)
	h.seen[key] = struct{}{}

	for len(h.order) > h.max {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.seen, oldest)
	}
}

// Clear drops all entries
func (h *SessionHistory) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.order = nil
	h.seen = make(map[string]struct{})
}

// Len returns the number of recorded entries
func (h *SessionHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.order)
}

// ArtistHistory tracks played album titles per artist. Each artist gets an
// independent bounded set, created lazily on first exploration.
type ArtistHistory struct {
	mu       sync.Mutex
	max      int
	byArtist map[string]*SessionHistory
}

// NewArtistHistory creates an empty per-artist history. The cap applies
// to each artist's set individually.
func NewArtistHistory(maxPerArtist int) *ArtistHistory {
	return &ArtistHistory{
		max:      maxPerArtist,
		byArtist: make(map[string]*SessionHistory),
	}
}

// Has reports whether albumTitle was recorded for artist
func (h *ArtistHistory) Has(artist, albumTitle string) bool {
	h.mu.Lock()
	set := h.byArtist[artist]
	h.mu.Unlock()

	if set == nil {
		return false
	}
	return set.Has(albumTitle)
}

// Record marks albumTitle as played for artist
func (h *ArtistHistory) Record(artist, albumTitle string) {
	h.mu.Lock()
	set := h.byArtist[artist]
	if set == nil {
		set = NewSessionHistory(h.max)
		h.byArtist[artist] = set
	}
	h.mu.Unlock()

	set.Record(albumTitle)
}

// ClearArtist drops the history for a single artist only
func (h *ArtistHistory) ClearArtist(artist string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.byArtist, artist)
}
