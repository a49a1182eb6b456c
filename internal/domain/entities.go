package domain

// ItemHint classifies a catalog node as returned by the crate server
type ItemHint string

const (
	HintList       ItemHint = "list"       // Node with browsable children
	HintAction     ItemHint = "action"     // Node that triggers a server-side action
	HintActionList ItemHint = "actionList" // Node whose children are actions
)

// CatalogItem is a single node returned by the catalog service.
// Items are ephemeral: the itemKey is only guaranteed valid for the
// current browse session.
type CatalogItem struct {
	Title    string   // Display title
	Subtitle string   // Byline, typically the artist; may embed an album count
	ItemKey  string   // Opaque navigation key
	ImageKey string   // Opaque cover-art key, may be empty
	Hint     ItemHint // Node classification
}

// IsList returns true if the item can be browsed into
func (i CatalogItem) IsList() bool {
	return i.Hint == HintList || i.Hint == HintActionList
}

// IsAction returns true if navigating into the item triggers an action
func (i CatalogItem) IsAction() bool {
	return i.Hint == HintAction
}

// ListHeader is the authoritative description of the list at the current
// browse cursor position.
type ListHeader struct {
	Title      string
	ItemKey    string
	TotalCount int
	ImageKey   string
}

// GenreEntry is one entry of the flattened genre list.
// Expandable is derived from the album count at cache-fill time.
type GenreEntry struct {
	Title      string `json:"title"`
	AlbumCount int    `json:"albumCount"`
	Expandable bool   `json:"expandable"`
}

// SubgenreEntry is a child genre scoped to a parent genre.
type SubgenreEntry struct {
	Title       string `json:"title"`
	AlbumCount  int    `json:"albumCount"`
	ParentGenre string `json:"parentGenre"`
	ItemKey     string `json:"itemKey"`
}

// GenreFilter addresses one genre or subgenre for weighted selection.
// Parent is empty for top-level genres. AlbumCount is the sampling weight.
type GenreFilter struct {
	Title      string
	Parent     string
	AlbumCount int
}

// IsSubgenre returns true if the filter addresses a subgenre
func (f GenreFilter) IsSubgenre() bool {
	return f.Parent != ""
}

// Selection is the result of a successful album pick.
type Selection struct {
	AlbumTitle   string `json:"albumTitle"`
	ArtistByline string `json:"artistByline"`
	ImageKey     string `json:"imageKey,omitempty"`
}

// ExplorationResult is the outcome of an artist-exploration request.
// Either Selection is set, or Ignored is true and Reason explains why the
// request was not processed. Ignored results are not failures.
type ExplorationResult struct {
	Selection *Selection `json:"selection,omitempty"`
	Ignored   bool       `json:"ignored,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// ImageOptions are the rendering hints passed to the catalog image endpoint.
type ImageOptions struct {
	Width  int
	Height int
	Format string
}

// ImagePayload is a retrieved cover-art blob. Format and dimensions are
// sniffed locally; Format is empty when the payload could not be decoded.
type ImagePayload struct {
	ContentType string
	Format      string
	Width       int
	Height      int
	Bytes       []byte
}

// CacheStats describes the state of the image cache.
type CacheStats struct {
	Size      int     `json:"size"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hitRate"`
}
