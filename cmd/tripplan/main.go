package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pbaille/tripplan/internal/api"
	"github.com/pbaille/tripplan/internal/assistant"
	"github.com/pbaille/tripplan/internal/cache"
	"github.com/pbaille/tripplan/internal/checklist"
	"github.com/pbaille/tripplan/internal/config"
	"github.com/pbaille/tripplan/internal/export"
	"github.com/pbaille/tripplan/internal/fetcher"
	"github.com/pbaille/tripplan/internal/geocode"
	"github.com/pbaille/tripplan/internal/importer"
	"github.com/pbaille/tripplan/internal/logging"
	"github.com/pbaille/tripplan/internal/rates"
	"github.com/pbaille/tripplan/internal/resolver"
	"github.com/pbaille/tripplan/internal/store"
	"github.com/pbaille/tripplan/internal/weather"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    config.Config
	logger *zap.Logger
)

func main() {
	var (
		dbPath string
		debug  bool
	)

	rootCmd := &cobra.Command{
		Use:           "tripplan",
		Short:         "Trip planner: itineraries, coordinates and booking checklists",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			logger, err = logging.New(cfg.Debug)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default $TRIPPLAN_DB or tripplan.db)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(daysCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(geocodeCmd())
	rootCmd.AddCommand(checklistCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(duplicatesCmd())
	rootCmd.AddCommand(cleanupCmd())
	rootCmd.AddCommand(resetCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	return store.New(cfg.DBPath)
}

// newGeocoder builds the lookup chain: stored results first, then the
// rate-limited Nominatim client.
func newGeocoder(s *store.Store) geocode.Geocoder {
	throttled := geocode.NewThrottled(
		geocode.NewNominatim(cfg.NominatimServer, geocode.WithEmail(cfg.NominatimEmail)),
		geocode.NewLimiter(cfg.GeocodeDelay),
		logger,
	)
	return geocode.NewCached(s, throttled, logger)
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			// Note: don't defer s.Close() as server runs indefinitely

			rateCache, err := cache.NewTTL[rates.Rate](256)
			if err != nil {
				return err
			}
			forecastCache, err := cache.NewTTL[weather.Forecast](256)
			if err != nil {
				return err
			}
			deps := api.Deps{
				Store:     s,
				Resolver:  resolver.New(s, newGeocoder(s), logger),
				Checklist: checklist.NewReconciler(s, logger),
				Rates:     rates.New(cfg.ExchangeAPI, rateCache, logger),
				Weather:   weather.New(cfg.WeatherAPI, forecastCache, logger),
				Fetcher:   fetcher.New(nil),
				Logger:    logger,
			}
			if ai, err := assistant.New(cfg.AnthropicAPIKey); err == nil {
				deps.Assistant = ai
			} else {
				logger.Warn("link extraction disabled", zap.Error(err))
			}

			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			return api.New(deps).Run(cfg.Addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address (default $TRIPPLAN_ADDR)")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file.json]",
		Short: "Import a trip export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			doc, err := importer.Decode(f)
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := importer.New(s, logger).Import(cmd.Context(), doc)
			if err != nil {
				return err
			}

			fmt.Printf("Imported trip %s\n", res.TripID)
			for _, id := range res.PlanVersionIDs {
				fmt.Printf("  plan version %s\n", id)
			}
			fmt.Printf("  %d days, %d accommodations, %d transport, %d costs, %d checklist items\n",
				res.Days, res.Accommodations, res.Transport, res.Costs, res.ChecklistItems)
			return nil
		},
	}
}

func daysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "days [plan-version-id]",
		Short: "List the itinerary of a plan version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.GetPlanVersion(cmd.Context(), args[0]); err != nil {
				return err
			}
			days, err := s.ListDays(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(days) == 0 {
				fmt.Println("No days yet.")
				return nil
			}

			for _, d := range days {
				coords := "-"
				if d.HasCoordinates() {
					coords = fmt.Sprintf("%.5f, %.5f", d.Coordinates.Lat, d.Coordinates.Lng)
				}
				date := "          "
				if d.Date != nil {
					date = d.Date.Format("2006-01-02")
				}
				fmt.Printf("%3d  %s  %-30s  %s\n", d.DayNumber, date, truncate(d.Location, 30), coords)
			}
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export [trip-id]",
		Short: "Print the active plan of a trip to PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			it, err := export.Load(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = "trip-" + it.Trip.ID + ".pdf"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := export.WritePDF(f, it); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%s, %d days)\n", out, it.Plan.Name, len(it.Days))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default trip-<id>.pdf)")
	return cmd
}

func geocodeCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "geocode [plan-version-id]",
		Short: "Fill in missing day coordinates",
		Long: "Resolves up to 10 days without coordinates per pass. Known stops and\n" +
			"sea days never reach the external geocoder. With --all, passes repeat\n" +
			"until one updates nothing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			r := resolver.New(s, newGeocoder(s), logger)
			for pass := 1; ; pass++ {
				report, err := r.ResolveMissing(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if report.Message != "" {
					fmt.Println(report.Message)
					return nil
				}

				fmt.Printf("Pass %d: %d updated, %d skipped\n", pass, len(report.Updated), len(report.Skipped))
				for _, u := range report.Updated {
					fmt.Printf("  + %-30s %.5f, %.5f\n", truncate(u.Location, 30), u.Lat, u.Lng)
				}
				for _, sk := range report.Skipped {
					fmt.Printf("  - %-30s %s\n", truncate(sk.Location, 30), sk.Reason)
				}

				if !all || len(report.Updated) == 0 {
					return nil
				}
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "repeat until nothing more resolves")
	return cmd
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
