package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/spf13/cobra"
)

var renderOutput string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the card to a local JPEG without publishing it",
	RunE:  runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "wrapped.jpg", "Output file")
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(logFile, logLevel)

	artists, songs, err := fetchSummary(ctx, cfg, logger)
	if err != nil {
		return err
	}

	blob, err := newCompositor(cfg, logger).Composite(ctx, artists, songs)
	if err != nil {
		return fmt.Errorf("failed to render card: %w", err)
	}

	if err := os.WriteFile(renderOutput, blob, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", renderOutput, err)
	}

	fmt.Printf("✓ Card written to %s (%d bytes)\n", renderOutput, len(blob))
	return nil
}
