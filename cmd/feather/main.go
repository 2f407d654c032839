// Command feather is a thin CLI over the feather database: create a
// snapshot file, add vectors from .npy or .json files, and search.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/featherdb/feather"
	"github.com/featherdb/feather/internal/vecfile"
	"github.com/featherdb/feather/metadata"
	"github.com/featherdb/feather/scoring"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "feather",
		Short:         "Persistent approximate nearest-neighbor database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newNewCmd(), newAddCmd(), newSearchCmd())

	return cmd
}

func newNewCmd() *cobra.Command {
	var dim int

	cmd := &cobra.Command{
		Use:   "new <path>",
		Short: "Create an empty database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := feather.OpenOrCreate(args[0], dim)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s (dim=%d)\n", args[0], dim)
			return nil
		},
	}

	cmd.Flags().IntVar(&dim, "dim", 128, "vector dimension")

	return cmd
}

func newAddCmd() *cobra.Command {
	var (
		importance float32
		typeName   string
		source     string
		content    string
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "add <db> <id> <vector-file>",
		Short: "Add a vector from a .npy or .json file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[1])
			if err != nil {
				return err
			}

			vector, err := vecfile.Load(args[2])
			if err != nil {
				return err
			}

			typ, err := metadata.ParseType(typeName)
			if err != nil {
				return err
			}

			db, err := feather.OpenOrCreate(args[0], len(vector))
			if err != nil {
				return err
			}
			defer db.Close()

			meta := metadata.Metadata{
				Timestamp:  time.Now().Unix(),
				Importance: importance,
				Type:       typ,
				Source:     source,
				Content:    content,
				Tags:       tags,
			}

			if err := db.AddWithMetadata(id, vector, meta); err != nil {
				return err
			}

			if err := db.Save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "added id=%d (%d records total)\n", id, db.Len())
			return nil
		},
	}

	cmd.Flags().Float32Var(&importance, "importance", 0.5, "record importance in [0,1]")
	cmd.Flags().StringVar(&typeName, "type", "fact", "record type (fact, preference, event, conversation)")
	cmd.Flags().StringVar(&source, "source", "", "record source")
	cmd.Flags().StringVar(&content, "content", "", "record content")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "record tags")

	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		k             int
		typeNames     []string
		source        string
		minImportance float32
		halfLife      float64
		recencyWeight float64
	)

	cmd := &cobra.Command{
		Use:   "search <db> <vector-file>",
		Short: "Search for the nearest records to a query vector",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := vecfile.Load(args[1])
			if err != nil {
				return err
			}

			db, err := feather.OpenOrCreate(args[0], len(query))
			if err != nil {
				return err
			}
			defer db.Close()

			opts := feather.SearchOptions{}

			if len(typeNames) > 0 || source != "" || minImportance > 0 {
				filter := &metadata.Filter{}
				for _, name := range typeNames {
					typ, err := metadata.ParseType(name)
					if err != nil {
						return err
					}
					filter.Types = append(filter.Types, typ)
				}
				if source != "" {
					filter.Source = &source
				}
				if minImportance > 0 {
					filter.MinImportance = &minImportance
				}
				opts.Filter = filter
			}

			if recencyWeight > 0 {
				opts.Scoring = &scoring.Config{
					HalfLifeSeconds: halfLife,
					RecencyWeight:   recencyWeight,
				}
			}

			results, err := db.SearchWithOptions(query, k, opts)
			if err != nil {
				return err
			}

			for i, r := range results {
				line := fmt.Sprintf("%d. id=%d distance=%.4f", i+1, r.ID, r.Distance)
				if opts.Scoring != nil {
					line += fmt.Sprintf(" score=%.4f", r.Score)
				}
				if r.Meta.Content != "" {
					line += " " + r.Meta.Content
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&k, "k", 5, "number of results")
	cmd.Flags().StringSliceVar(&typeNames, "type", nil, "restrict to record types")
	cmd.Flags().StringVar(&source, "source", "", "restrict to a source")
	cmd.Flags().Float32Var(&minImportance, "min-importance", 0, "minimum importance")
	cmd.Flags().Float64Var(&halfLife, "half-life", 86400*30, "recency half-life in seconds")
	cmd.Flags().Float64Var(&recencyWeight, "recency-weight", 0, "recency weight in [0,1]; 0 disables scoring")

	return cmd
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
