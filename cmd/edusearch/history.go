// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/edusearch/internal/store"
	"github.com/pdiddy/edusearch/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or export a user's stored results without querying sources",
	Long: `History reads the results already stored for a user. --filter narrows
them to titles or descriptions containing the text. --export writes the
whole history as YAML or JSON instead of a page.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	if user == "" {
		return fmt.Errorf("--user is required")
	}
	filter, _ := cmd.Flags().GetString("filter")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	export, _ := cmd.Flags().GetBool("export")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	ctx := cmd.Context()
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if export {
		if format != store.FormatYAML && format != store.FormatJSON {
			return fmt.Errorf("unsupported format %q: use %s or %s", format, store.FormatYAML, store.FormatJSON)
		}
		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		return a.store.Export(ctx, user, format, w)
	}

	res, err := a.pager.Page(ctx, user, filter, page, pageSize)
	if err != nil {
		return err
	}
	printResults(os.Stdout, res.PublicItems(), res.Pagination)

	counts, err := a.store.CountBySource(ctx, user)
	if err != nil {
		return err
	}
	for _, c := range counts {
		fmt.Fprintf(os.Stdout, "  %-12s %d\n", c.Source, c.Count)
	}
	return nil
}

func init() {
	historyCmd.Flags().String("user", "", "user whose history to read (required)")
	historyCmd.Flags().String("filter", "", "only results whose title or description contains this text")
	historyCmd.Flags().Int("page", types.DefaultPage, "page number, starting at 1")
	historyCmd.Flags().Int("page-size", types.DefaultPageSize, "results per page")
	historyCmd.Flags().Bool("export", false, "write the full history instead of one page")
	historyCmd.Flags().String("format", store.FormatYAML, "export format: yaml or json")
	historyCmd.Flags().StringP("output", "o", "", "export file (default: stdout)")

	rootCmd.AddCommand(historyCmd)
}
