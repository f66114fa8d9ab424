package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ozwatch/ozwatch/internal/config"
	"github.com/ozwatch/ozwatch/internal/extract"
	"github.com/ozwatch/ozwatch/internal/fetch"
	collyfetch "github.com/ozwatch/ozwatch/internal/fetch/colly"
	"github.com/ozwatch/ozwatch/internal/fetch/headless"
	"github.com/ozwatch/ozwatch/internal/logging"
	"github.com/ozwatch/ozwatch/internal/track"
	"github.com/ozwatch/ozwatch/internal/watch"
)

// checkCmd is a one-shot lookup for debugging extraction against the live
// site. It needs no bot token and never touches the store.
var checkCmd = &cobra.Command{
	Use:   "check <tracking-number>",
	Short: "Fetch one tracking page and print the extracted status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger, err := logging.New(cfg.Logging.Development)
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck

		number, ok := track.ParseNumber(args[0])
		if !ok {
			return fmt.Errorf("%q does not look like a tracking number", args[0])
		}

		fetcher := fetch.NewClient(fetch.Config{
			Probe: collyfetch.Config{
				BaseURL:   cfg.Fetch.BaseURL,
				UserAgent: cfg.Fetch.UserAgent,
				Timeout:   time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
			},
			Headless: headless.Config{
				BaseURL:          cfg.Fetch.BaseURL,
				UserAgent:        cfg.Fetch.UserAgent,
				NavTimeout:       time.Duration(cfg.Fetch.NavTimeoutSeconds) * time.Second,
				Settle:           time.Duration(cfg.Fetch.SettleMillis) * time.Millisecond,
				LookupsPerSecond: cfg.Fetch.LookupsPerSecond,
			},
			HeadlessEnabled: cfg.Fetch.HeadlessEnabled,
		}, fetch.NewDetector(0, nil), logger.Named("fetch"))

		checker := watch.NewChecker(fetcher, extract.New(), logger.Named("checker"))
		res := checker.Check(cmd.Context(), number)
		fmt.Printf("%s: %s (%s)\n", number, res.Status, res.Reason)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
