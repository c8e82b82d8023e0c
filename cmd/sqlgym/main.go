// Command sqlgym runs the SQL practice engine: LLM-generated practice
// questions materialized into isolated Postgres schema sandboxes, with
// answer checking against precomputed expected results.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "sqlgym",
	Short: "SQL practice engine with LLM-generated questions",
	Long: `sqlgym serves SQL practice sessions: a language model generates a
question with its own dataset, the dataset is materialized into an
isolated Postgres schema, and learner answers are checked against the
precomputed results of the reference query.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (default: discovered)")
}

func main() {
	// A .env file is optional; absence is not an error.
	godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
