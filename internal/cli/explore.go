package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avlowe/cratedig/internal/domain"
)

var exploreCurrent string

var exploreCmd = &cobra.Command{
	Use:   "explore <artist>",
	Short: "Play a different album by an artist",
	Long: `Picks another album by the given artist, skipping whatever is currently
playing and albums this session already explored for them.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().StringVarP(&exploreCurrent, "current", "C", "", "Title of the album currently playing")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	result, err := engine.ExploreArtist(context.Background(), args[0], exploreCurrent)
	if err != nil {
		if errors.Is(err, domain.ErrNoAlternativeAlbum) {
			return fmt.Errorf("%s has no other album to play", args[0])
		}
		var navErr *domain.NavigationError
		if errors.As(err, &navErr) {
			return fmt.Errorf("artist %q not found in the catalog", args[0])
		}
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if result.Ignored {
		fmt.Printf("Request ignored: %s\n", result.Reason)
		return nil
	}
	fmt.Printf("Now playing: %s\n", result.Selection.AlbumTitle)
	if result.Selection.ArtistByline != "" {
		fmt.Printf("             %s\n", result.Selection.ArtistByline)
	}
	return nil
}
