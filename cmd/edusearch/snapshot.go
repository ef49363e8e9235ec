// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/edusearch/internal/search"
)

// --- fetch subcommand ---

var fetchCmd = &cobra.Command{
	Use:   "fetch <query>",
	Short: "Query the sources and save the candidates to a file without storing them",
	Long: `Fetch runs only the aggregation step and writes the merged candidates,
with a per-source error summary, to a YAML query file. Use import to store
a query file for a user later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func runFetch(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	query := strings.Join(args, " ")

	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	out := a.agg.Aggregate(cmd.Context(), query)
	qf := search.NewQueryFile(query, a.agg.Sources(), out)
	for _, e := range out.Errors {
		fmt.Fprintf(os.Stderr, "warning: %v\n", e)
	}

	if output == "" {
		output = "query.yaml"
	}
	if err := search.WriteQueryFile(output, qf); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%d candidates from %d source(s) written to %s\n",
		qf.Summary.Total, len(qf.Sources), output)
	return nil
}

// --- import subcommand ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Store the candidates from a query file for a user",
	Long: `Import reads a query file written by fetch and stores its candidates
for the user. Candidates the user already has are left untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return fmt.Errorf("--user is required")
	}

	qf, err := search.ReadQueryFile(args[0])
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	_, sum := a.persister.Persist(context.WithoutCancel(cmd.Context()), user, qf.Candidates)
	fmt.Fprintf(os.Stdout, "%q: %d inserted, %d already stored, %d failed\n",
		qf.Query, sum.Inserted, sum.Existing, sum.Failed)
	if sum.Failed > 0 {
		return fmt.Errorf("%d candidate(s) failed to store", sum.Failed)
	}
	return nil
}

func init() {
	fetchCmd.Flags().StringP("output", "o", "", "query file to write (default: query.yaml)")
	importCmd.Flags().String("user", "", "user to store the candidates for (required)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(importCmd)
}
