package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/juergengeck/meaningcore"
	"github.com/juergengeck/meaningcore/pkg/index"
	"github.com/juergengeck/meaningcore/pkg/metric"
	"github.com/juergengeck/meaningcore/pkg/model"
	"github.com/juergengeck/meaningcore/pkg/provider"
	"github.com/juergengeck/meaningcore/pkg/store"
)

var (
	dbPath           string
	modelName        string
	customDimensions int
	metricName       string
	outputJSON       bool
)

var rootCmd = &cobra.Command{
	Use:   "meaningctl",
	Short: "CLI tool for the meaning similarity dimension",
	Long:  `A command-line interface for indexing embeddings and running nearest-neighbor queries against a meaning dimension.`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize (or reopen) the meaning dimension",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := openFacade()
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Printf("meaning dimension ready: model=%s dimensions=%d size=%d\n", f.Model(), f.Dimensions(), f.Size())
		return nil
	},
}

var indexVectorCmd = &cobra.Command{
	Use:   "index-vector <object-id> <v1,v2,...>",
	Short: "Index a raw embedding under an object id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := openFacade()
		if err != nil {
			return err
		}
		defer closeFn()

		vector, err := parseVector(args[1])
		if err != nil {
			return err
		}

		valueID, err := f.IndexEmbedding(context.Background(), args[0], vector)
		if err != nil {
			return fmt.Errorf("index-vector: %w", err)
		}

		fmt.Printf("indexed %s -> meaning value %s\n", args[0], valueID)
		return nil
	},
}

var indexTextCmd = &cobra.Command{
	Use:   "index-text <text>",
	Short: "Embed text with the mock provider and index it under a generated object id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := openFacade()
		if err != nil {
			return err
		}
		defer closeFn()

		objectID := uuid.NewString()
		valueID, err := f.IndexText(context.Background(), objectID, args[0])
		if err != nil {
			return fmt.Errorf("index-text: %w", err)
		}

		fmt.Printf("indexed %q as %s -> meaning value %s\n", args[0], objectID, valueID)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <v1,v2,...>",
	Short: "Find the nearest indexed objects to a raw vector",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := openFacade()
		if err != nil {
			return err
		}
		defer closeFn()

		vector, err := parseVector(args[0])
		if err != nil {
			return err
		}

		k, _ := cmd.Flags().GetInt("top-k")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		var thresholdPtr *float64
		if cmd.Flags().Changed("threshold") {
			thresholdPtr = &threshold
		}

		results, err := f.QueryWithScores(context.Background(), vector, k, thresholdPtr)
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}

		printResults(results)
		return nil
	},
}

var queryTextCmd = &cobra.Command{
	Use:   "query-text <text>",
	Short: "Embed text with the mock provider and find its nearest indexed objects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := openFacade()
		if err != nil {
			return err
		}
		defer closeFn()

		k, _ := cmd.Flags().GetInt("top-k")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		var thresholdPtr *float64
		if cmd.Flags().Changed("threshold") {
			thresholdPtr = &threshold
		}

		results, err := f.QueryByText(context.Background(), args[0], k, thresholdPtr)
		if err != nil {
			return fmt.Errorf("query-text: %w", err)
		}

		printResults(results)
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Discard the in-memory index and repopulate it from the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := openFacade()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := f.RebuildIndex(context.Background()); err != nil {
			return fmt.Errorf("rebuild: %w", err)
		}

		fmt.Printf("rebuilt: size=%d\n", f.Size())
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display dimension statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, closeFn, err := openFacade()
		if err != nil {
			return err
		}
		defer closeFn()

		stats := map[string]any{
			"model":      f.Model(),
			"dimensions": f.Dimensions(),
			"size":       f.Size(),
		}

		if outputJSON {
			data, _ := json.MarshalIndent(stats, "", "  ")
			fmt.Println(string(data))
		} else {
			fmt.Printf("Model:      %s\n", stats["model"])
			fmt.Printf("Dimensions: %d\n", stats["dimensions"])
			fmt.Printf("Indexed:    %d\n", stats["size"])
		}
		return nil
	},
}

var similarityCmd = &cobra.Command{
	Use:   "similarity <v1,v2,...> <w1,w2,...>",
	Short: "Calculate similarity between two vectors without touching any store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := parseVector(args[0])
		if err != nil {
			return err
		}
		b, err := parseVector(args[1])
		if err != nil {
			return err
		}

		d, err := metric.Distance(metric.Metric(metricName), a, b)
		if err != nil {
			return fmt.Errorf("similarity: %w", err)
		}

		fmt.Printf("similarity (%s): %.6f\n", metricName, metric.ToSimilarity(metric.Metric(metricName), d))
		return nil
	},
}

func printResults(results []index.Result) {
	if outputJSON {
		data, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Found %d results:\n", len(results))
	for i, r := range results {
		fmt.Printf("%d. %s (similarity: %.4f)\n", i+1, r.ObjectID, r.Similarity)
	}
}

func parseVector(s string) ([]float32, error) {
	parts := strings.Split(s, ",")
	vector := make([]float32, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", part, err)
		}
		vector = append(vector, float32(val))
	}
	return vector, nil
}

// openFacade opens a facade over a SQLite store when --db is set, or an
// in-process MemoryStore otherwise, and returns a close function that
// releases the underlying database connection if one was opened.
func openFacade() (*meaning.Facade, func(), error) {
	var adapter = store.Adapter(store.NewMemoryStore())
	closeFn := func() {}

	if dbPath != "" {
		s, err := store.OpenSQLiteStore(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		adapter = s
		closeFn = func() { s.Close() }
	}

	cfg := meaning.Config{
		Model:            model.Name(modelName),
		CustomDimensions: customDimensions,
		Metric:           metric.Metric(metricName),
		Provider:         provider.NewMockProvider(model.Name(modelName), resolveDimensions()),
	}

	f := meaning.New(cfg, adapter, meaning.NewStdLogger(meaning.LevelWarn))
	if err := f.Init(context.Background()); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("init: %w", err)
	}

	return f, closeFn, nil
}

func resolveDimensions() int {
	if info, ok := model.Lookup(model.Name(modelName)); ok && info.Dimensions > 0 {
		return info.Dimensions
	}
	return customDimensions
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite database file path (defaults to an in-memory store)")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", string(model.AllMiniLML6V2), "Embedding model name")
	rootCmd.PersistentFlags().IntVar(&customDimensions, "custom-dimensions", 384, "Vector width when --model=custom")
	rootCmd.PersistentFlags().StringVar(&metricName, "metric", string(metric.Cosine), "Distance metric (cosine/euclidean/dot_product)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON where supported")

	queryCmd.Flags().Int("top-k", 10, "Number of results")
	queryCmd.Flags().Float64("threshold", 0, "Minimum similarity to report")
	queryTextCmd.Flags().Int("top-k", 10, "Number of results")
	queryTextCmd.Flags().Float64("threshold", 0, "Minimum similarity to report")

	rootCmd.AddCommand(
		initCmd,
		indexVectorCmd,
		indexTextCmd,
		queryCmd,
		queryTextCmd,
		rebuildCmd,
		statsCmd,
		similarityCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
