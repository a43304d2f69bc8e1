package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/news"
)

// newNewsCmd prints a slice of the news fixture.
func newNewsCmd(a *app) *cobra.Command {
	var start, end int

	cmd := &cobra.Command{
		Use:   "news",
		Short: "Print a slice of the market news fixture",
		Long: `Print formatted news summaries for fixture indices [start, end).

Indices are clamped to the fixture bounds; an empty range prints nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			feed := news.DefaultFeed()
			if !cmd.Flags().Changed("end") {
				end = feed.Len()
			}
			a.logger.Debug("printing news slice", zap.Int("start", start), zap.Int("end", end))

			text := feed.Slice(start, end)
			if text == "" {
				return nil
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "First fixture index (inclusive)")
	cmd.Flags().IntVar(&end, "end", 0, "Last fixture index (exclusive, default: fixture length)")
	return cmd
}
