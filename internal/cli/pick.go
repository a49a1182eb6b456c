package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avlowe/cratedig/internal/domain"
	"github.com/avlowe/cratedig/internal/service"
)

var pickGenres []string

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a random album and start playback",
	Long: `Picks an unplayed album at random and starts playback on the configured
output. With one or more --genre flags the pick is weighted across them by
album count. Use "Parent/Subgenre" to pick inside a subgenre.`,
	RunE: runPick,
}

func init() {
	pickCmd.Flags().StringArrayVarP(&pickGenres, "genre", "g", nil, "Restrict to a genre (repeatable)")
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	filters, err := resolveFilters(ctx, engine, pickGenres)
	if err != nil {
		return err
	}

	selection, err := engine.PickRandomAlbum(ctx, filters)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogEmpty) {
			return fmt.Errorf("no albums match the requested genres")
		}
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(selection)
	}
	fmt.Printf("Now playing: %s\n", selection.AlbumTitle)
	if selection.ArtistByline != "" {
		fmt.Printf("             %s\n", selection.ArtistByline)
	}
	return nil
}

// resolveFilters turns --genre values into weighted filters, looking up
// album counts from the cached genre directory. "Parent/Sub" addresses a
// subgenre.
func resolveFilters(ctx context.Context, engine *service.Engine, names []string) ([]domain.GenreFilter, error) {
	if len(names) == 0 {
		return nil, nil
	}

	engineGenres := map[string]domain.GenreEntry{}

	filters := make([]domain.GenreFilter, 0, len(names))
	for _, name := range names {
		parent, sub, isSub := strings.Cut(name, "/")
		if isSub {
			subs, err := engine.GetSubgenres(ctx, parent)
			if err != nil {
				return nil, err
			}
			found := false
			for _, s := range subs {
				if strings.EqualFold(s.Title, sub) {
					filters = append(filters, domain.GenreFilter{Title: s.Title, Parent: parent, AlbumCount: s.AlbumCount})
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("unknown subgenre %q under %q", sub, parent)
			}
			continue
		}

		if len(engineGenres) == 0 {
			genres, err := engine.ListGenres(ctx)
			if err != nil {
				return nil, err
			}
			for _, g := range genres {
				engineGenres[strings.ToLower(g.Title)] = g
			}
		}
		g, ok := engineGenres[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown genre %q", name)
		}
		filters = append(filters, domain.GenreFilter{Title: g.Title, AlbumCount: g.AlbumCount})
	}

	return filters, nil
}
