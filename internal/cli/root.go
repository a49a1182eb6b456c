package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avlowe/cratedig/internal/catalog"
	"github.com/avlowe/cratedig/internal/config"
	"github.com/avlowe/cratedig/internal/log"
	"github.com/avlowe/cratedig/internal/service"
	"github.com/avlowe/cratedig/internal/store"
)

var (
	jsonOut bool
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "cratedig",
	Short: "Weighted random album selection for your music server",
	Long:  `Cratedig picks albums from a remote music catalog: weighted random selection by genre, artist exploration, and a session history so the same record does not come up twice.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// newEngine builds the selection engine from the loaded config. The caller
// owns the returned engine and must Close it.
func newEngine() (*service.Engine, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("no server configured, set CRATEDIG_SERVER_URL or edit the config file")
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		logger = log.NullLogger()
	}

	client := catalog.NewClient(cfg.Server.URL, cfg.Server.Token, logger)

	snaps, err := store.NewSnapshotStore(cfg.Cache.Dir, cfg.Server.URL)
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "snapshot store unavailable, running memory-only: %v\n", err)
		}
		snaps, _ = store.NewSnapshotStore("", cfg.Server.URL)
	}

	return service.New(client, snaps, cfg.Tuning, cfg.Server.OutputTarget, logger), nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// JSONOutput returns true if JSON output is requested.
func JSONOutput() bool {
	return jsonOut
}

// Verbose returns true if verbose output is requested.
func Verbose() bool {
	return verbose
}
