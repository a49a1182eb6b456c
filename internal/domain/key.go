package domain

import "strings"

// albumKeySeparator joins the two halves of an album key. The ASCII unit
// separator never appears in titles or bylines, so punctuation such as a
// slash inside an artist name cannot collide with the join point.
const albumKeySeparator = "\x1f"

// AlbumKey derives the compound identity used for anti-repeat comparisons.
// Two items with the same title and byline are the same album regardless
// of their underlying catalog keys.
func AlbumKey(albumTitle, artistByline string) string {
	return albumTitle + albumKeySeparator + artistByline
}

// SplitAlbumKey recovers the title and byline from a compound key.
func SplitAlbumKey(key string) (albumTitle, artistByline string) {
	title, byline, _ := strings.Cut(key, albumKeySeparator)
	return title, byline
}
