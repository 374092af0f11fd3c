package cmd

import (
	"context"
	"fmt"

	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent mint attempts",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of attempts to show (0 for all)")
}

// historyWidths are the display widths of the id, state and created columns.
var historyWidths = []int{8, 19, 16}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	attempts, err := j.Recent(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("No mint attempts yet")
		return nil
	}

	fmt.Println(columns(historyWidths, "ID", "STATE", "CREATED", "DETAIL"))
	for _, a := range attempts {
		detail := a.TokenURI
		if a.Error != "" {
			detail = a.Error
		}
		if a.Unpinned {
			detail += " (unpinned)"
		}
		fmt.Println(columns(historyWidths,
			shortID(a.ID),
			a.State,
			a.CreatedAt.Local().Format("2006-01-02 15:04"),
			detail,
		))
	}
	return nil
}

// shortID abbreviates an attempt id the way git abbreviates hashes.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
