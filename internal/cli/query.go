package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	finrag "github.com/finquery-labs/finrag"
	logpkg "github.com/finquery-labs/finrag/internal/logger"
)

var (
	queryTopK    int
	queryJSON    bool
	queryStrict  bool
	queryFilters []string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve ranked evidence chunks for a query",
	Long: `Runs one retrieve call against the configured collections and prints the
ranked results with citations. Inline filters work the same as over the API:

  finrag query "ticker: AAPL form: 10-K revenue growth"
  finrag query "fed rate decisions since 2023-06-01" -k 5
  finrag query "semiconductor demand" -f ticker=NVDA -f source=news`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(args[0])
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 10, "number of results")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output JSON")
	queryCmd.Flags().BoolVar(&queryStrict, "strict", false, "fail on unknown filter fields")
	queryCmd.Flags().StringArrayVarP(&queryFilters, "filter", "f", nil,
		"metadata filter as field=value (repeatable)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(text string) error {
	cfg, env, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	filters, err := parseFilterFlags(queryFilters)
	if err != nil {
		return err
	}

	client, err := finrag.New(cfg, finrag.WithLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	set, err := client.Retrieve(ctx, finrag.Query{
		Text:    text,
		Filters: filters,
		TopK:    queryTopK,
		Strict:  queryStrict,
	})
	if err != nil {
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(set)
	}

	printResults(set)
	return nil
}

func parseFilterFlags(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(flags))
	for _, f := range flags {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid filter %q, expected field=value", f)
		}
		filters[key] = value
	}
	return filters, nil
}

func printResults(set finrag.ResultSet) {
	if set.Partial {
		fmt.Printf("warning: partial results, failed collections: %s\n\n",
			strings.Join(set.FailedCollections, ", "))
	}
	if len(set.Results) == 0 {
		fmt.Println("no results")
		return
	}

	for i, r := range set.Results {
		source := r.Citation.SourceName
		if source == "" {
			source = r.Citation.Collection
		}
		fmt.Printf("%2d. [%.3f] %s (%s, doc %s)\n",
			i+1, r.Score, firstLine(r.Text), source, r.Citation.DocumentID)
	}
}

func firstLine(text string) string {
	const maxLen = 100
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > maxLen {
		text = text[:maxLen-3] + "..."
	}
	return text
}
