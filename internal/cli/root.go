// Package cli implements the finrag command line: serve, query, version.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/finquery-labs/finrag/internal/config"
)

var envFlag string

var rootCmd = &cobra.Command{
	Use:   "finrag",
	Short: "Retrieval and ranking engine for financial research RAG",
	Long: `finrag retrieves and ranks evidence chunks from independently-indexed
financial collections (SEC filings, news, stock data, macro indicators).

Example usage:
  finrag serve                                   # run the REST API
  finrag query "ticker: AAPL revenue growth"     # ranked results with citations
  finrag query "since 2023-01-01 fed rates" -k 5`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "",
		"environment name for config/<env>.yaml (default from ENV, then \"local\")")
}

func loadConfig() (config.Config, string, error) {
	env := envFlag
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	return cfg, env, err
}
