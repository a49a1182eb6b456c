package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog operations
var (
	// ErrServerOffline indicates the catalog server is unreachable
	ErrServerOffline = errors.New("catalog server is unreachable")

	// ErrAuthFailed indicates the catalog token was rejected
	ErrAuthFailed = errors.New("catalog token is invalid")

	// ErrCatalogEmpty indicates a resolved list has zero items
	ErrCatalogEmpty = errors.New("catalog list is empty")

	// ErrNoAlternativeAlbum indicates artist exploration found no valid
	// alternative even after clearing the artist's local history
	ErrNoAlternativeAlbum = errors.New("no alternative album for artist")

	// ErrBrowseBusy indicates another navigation sequence holds the
	// single browse cursor; the operation was rejected without touching it
	ErrBrowseBusy = errors.New("browse cursor is busy")
)

// NavigationError reports an expected node missing after full pagination,
// e.g. the Genres root, a named genre, or a named artist.
type NavigationError struct {
	Node string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("catalog node not found: %s", e.Node)
}

// ProtocolError reports that the pagination iteration cap was reached
// without a terminal empty page. Processing continues with partial results;
// this error is logged, not returned, unless the wanted node stayed missing.
type ProtocolError struct {
	Node       string
	Iterations int
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pagination cap reached after %d pages under %s", e.Iterations, e.Node)
}

// IsNavigationError reports whether err is a NavigationError
func IsNavigationError(err error) bool {
	var ne *NavigationError
	return errors.As(err, &ne)
}
