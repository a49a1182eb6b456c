package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avlowe/cratedig/internal/domain"
)

var genresRefresh bool

var genresCmd = &cobra.Command{
	Use:   "genres",
	Short: "List the catalog's genres",
	Long:  `Lists every genre in the catalog with its album count, largest first. Cached for an hour unless --refresh is given.`,
	RunE:  runGenres,
}

var subgenresCmd = &cobra.Command{
	Use:   "subgenres <genre>",
	Short: "List the subgenres of a genre",
	Args:  cobra.ExactArgs(1),
	RunE:  runSubgenres,
}

func init() {
	genresCmd.Flags().BoolVarP(&genresRefresh, "refresh", "r", false, "Discard the cached genre list first")
	rootCmd.AddCommand(genresCmd)
	rootCmd.AddCommand(subgenresCmd)
}

func runGenres(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	if genresRefresh {
		engine.InvalidateGenreCache()
	}

	genres, err := engine.ListGenres(context.Background())
	if err != nil {
		return err
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(genres)
	}

	if len(genres) == 0 {
		fmt.Println("No genres found")
		return nil
	}
	for _, g := range genres {
		marker := " "
		if g.Expandable {
			marker = "+"
		}
		fmt.Printf("%s %-40s %d albums\n", marker, g.Title, g.AlbumCount)
	}
	return nil
}

func runSubgenres(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	subs, err := engine.GetSubgenres(context.Background(), args[0])
	if err != nil {
		return err
	}

	if JSONOutput() {
		if subs == nil {
			subs = []domain.SubgenreEntry{}
		}
		return json.NewEncoder(os.Stdout).Encode(subs)
	}

	if len(subs) == 0 {
		fmt.Printf("No subgenres under %q\n", args[0])
		return nil
	}
	for _, s := range subs {
		fmt.Printf("  %-40s %d albums\n", s.Title, s.AlbumCount)
	}
	return nil
}
