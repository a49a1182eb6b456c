package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and session statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	engine, err := newEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	images := engine.ImageCacheStats()

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"image_cache":     images,
			"session_history": engine.HistoryLen(),
			"queue_depth":     engine.QueueDepth(),
		})
	}

	fmt.Printf("Image cache:     %d entries, %.0f%% hit rate (%d hits, %d misses, %d evictions)\n",
		images.Size, images.HitRate*100, images.Hits, images.Misses, images.Evictions)
	fmt.Printf("Session history: %d albums\n", engine.HistoryLen())
	fmt.Printf("Queue depth:     %d\n", engine.QueueDepth())
	return nil
}
