package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/config"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/geo"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/join"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/loader"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/logging"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/store"
	"github.com/My-Advanced-Machine-Learning-Project/urban-risk-lens/internal/web"
)

var (
	cfg *config.Config
	log *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "risklens",
		Short: "Urban risk dataset reconciliation",
		Long:  `Reconciles neighborhood GeoJSON polygons with tabular risk statistics into a single consistent record set`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log, err = logging.New(cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(createJoinCmd())
	rootCmd.AddCommand(createIndexCmd())
	rootCmd.AddCommand(createIngestCmd())
	rootCmd.AddCommand(createServeCmd())
	rootCmd.AddCommand(createPingCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// joinFlags holds the shared dataset/strategy flags.
type joinFlags struct {
	csvPath     string
	geojsonPath string
	strategy    string
	tabularKey  string
	geometryKey string
}

func (f *joinFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.csvPath, "csv", "", "tabular statistics CSV (defaults to DATA_TABULAR_PATH)")
	cmd.Flags().StringVar(&f.geojsonPath, "geojson", "", "neighborhood GeoJSON (defaults to DATA_GEOJSON_PATH)")
	cmd.Flags().StringVar(&f.strategy, "strategy", "composite", "join strategy: composite or single_key")
	cmd.Flags().StringVar(&f.tabularKey, "tabular-key", "", "pin the tabular join column (single-key only)")
	cmd.Flags().StringVar(&f.geometryKey, "geometry-key", "", "pin the geometry join property (single-key only)")
}

func (f *joinFlags) options() (loader.PipelineOptions, error) {
	csvPath := f.csvPath
	if csvPath == "" {
		csvPath = cfg.Data.TabularPath
	}
	geojsonPath := f.geojsonPath
	if geojsonPath == "" {
		geojsonPath = cfg.Data.GeoJSONPath
	}

	strategy, err := join.ParseStrategy(f.strategy)
	if err != nil {
		return loader.PipelineOptions{}, err
	}
	opts := &join.Options{
		Strategy:    strategy,
		TabularKey:  f.tabularKey,
		GeometryKey: f.geometryKey,
		Observer:    logging.NewJoinObserver(log),
	}

	return loader.PipelineOptions{
		TabularPath: csvPath,
		GeoJSONPath: geojsonPath,
		Join:        opts,
	}, nil
}

func createJoinCmd() *cobra.Command {
	flags := &joinFlags{}
	var outPath string

	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join tabular statistics onto GeoJSON features",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			dataset, err := loader.Load(opts)
			if err != nil {
				return err
			}

			if dataset.Diagnostics.Matched == 0 {
				log.Warn("join matched nothing; output is a passthrough of the input features")
			}

			out := geo.FeatureCollection{Type: "FeatureCollection", Features: dataset.Features}
			encoded, err := json.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to encode output: %w", err)
			}
			if outPath == "" {
				fmt.Println(string(encoded))
				return nil
			}
			if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Printf("Wrote %d features (%d matched, %d missing) to %s\n",
				dataset.Diagnostics.TotalFeatures, dataset.Diagnostics.Matched,
				dataset.Diagnostics.Missing, outPath)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "output path for the joined FeatureCollection (stdout if empty)")
	return cmd
}

func createIndexCmd() *cobra.Command {
	flags := &joinFlags{}
	var statsProperty string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Print the city/district/neighborhood hierarchy summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			dataset, err := loader.Load(opts)
			if err != nil {
				return err
			}

			cityKeys := make([]string, 0, len(dataset.Index.Cities))
			for key := range dataset.Index.Cities {
				cityKeys = append(cityKeys, key)
			}
			sort.Strings(cityKeys)

			for _, key := range cityKeys {
				city := dataset.Index.Cities[key]
				n := 0
				for _, d := range city.Districts {
					n += len(d.Neighborhoods)
				}
				fmt.Printf("%s: %d districts, %d neighborhoods\n", city.Name, len(city.Districts), n)
			}
			fmt.Printf("total entities: %d, with bbox: %d\n",
				len(dataset.Index.Normalized), len(dataset.BBoxes))
			if len(dataset.Index.IDCollisions) > 0 {
				fmt.Printf("synthesized id collisions: %v\n", dataset.Index.IDCollisions)
			}

			if stats := geo.PropertyStatistics(dataset.Features, statsProperty); stats != nil {
				fmt.Printf("%s: count=%d min=%.4f max=%.4f mean=%.4f\n",
					stats.Property, stats.Count, stats.Min, stats.Max, stats.Mean)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&statsProperty, "stats-property", "risk_score", "numeric property to summarize")
	return cmd
}

func createIngestCmd() *cobra.Command {
	flags := &joinFlags{}
	var runLabel string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Join the datasets and persist the result to Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			dataset, err := loader.Load(opts)
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			if err := st.EnsureSchema(ctx); err != nil {
				return err
			}
			runID, err := st.SaveJoinRun(ctx, runLabel, dataset.Diagnostics)
			if err != nil {
				return err
			}
			if err := st.SaveEntities(ctx, runID, dataset.Index.Normalized); err != nil {
				return err
			}

			count, err := st.CountNeighborhoods(ctx, runID)
			if err != nil {
				return err
			}
			fmt.Printf("Run %s: persisted %d neighborhoods\n", runID, count)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&runLabel, "label", "cli-ingest", "label stored with the join run")
	return cmd
}

func createServeCmd() *cobra.Command {
	flags := &joinFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reconciled dataset over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			dataset, err := loader.Load(opts)
			if err != nil {
				return err
			}
			log.Info("dataset loaded",
				zap.Int("features", len(dataset.Features)),
				zap.Int("matched", dataset.Diagnostics.Matched),
				zap.Int("entities", len(dataset.Index.Normalized)),
			)
			return web.NewServer(cfg.Server, dataset, log).Start()
		},
	}
	flags.register(cmd)
	return cmd
}

func createPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Test database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(cfg.Database.URL)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := st.Ping(ctx); err != nil {
				return err
			}
			fmt.Println("Database connection successful!")
			return nil
		},
	}
}
