// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/edusearch/internal/service"
	"github.com/pdiddy/edusearch/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search every enabled source and page through stored results",
	Long: `Search runs the same pipeline as the HTTP API for one user: it queries
PBS, CK12 and (when enabled) Khan Academy in parallel, stores new results,
and prints the requested page of the user's matching history.

With no query it pages through everything stored for the user.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	page, _ := cmd.Flags().GetInt("page")
	pageSize, _ := cmd.Flags().GetInt("page-size")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, err := userContext(cmd.Context(), user)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.svc.Search(ctx, service.Request{
		Query:    strings.Join(args, " "),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return err
	}
	for _, src := range out.SourceErrors {
		fmt.Fprintf(os.Stderr, "warning: source failed: %s\n", src)
	}
	if jsonOutput {
		return writeJSON(os.Stdout, out.Response)
	}
	if out.Response.Error != "" {
		return fmt.Errorf("%s", out.Response.Error)
	}
	printResults(os.Stdout, out.Response.Results, out.Response.Pagination)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResults(w io.Writer, rs []types.PublicResult, p types.Pagination) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-18s  %-12s  %-50s  %s\n", "#", "Type", "Source", "Title", "Created")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range rs {
		fmt.Fprintf(w, "%-4d  %-18s  %-12s  %-50s  %s\n",
			p.Offset()+i+1, r.Type, r.Source, truncate(r.Title, 50), r.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(w, "\npage %d of %d (%d results)\n", p.CurrentPage, p.TotalPages, p.TotalItems)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	searchCmd.Flags().String("user", "", "user whose results are stored and read (required)")
	searchCmd.Flags().Int("page", types.DefaultPage, "page number, starting at 1")
	searchCmd.Flags().Int("page-size", types.DefaultPageSize, "results per page")
	searchCmd.Flags().Bool("json", false, "output the response as JSON")

	rootCmd.AddCommand(searchCmd)
}
