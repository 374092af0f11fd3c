package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/jfmyers9/wrapped/internal/card"
	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/jfmyers9/wrapped/internal/stats"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// statsColumnWidth is the display width of the artist column.
const statsColumnWidth = 28

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the listening summary that goes on the card",
	Long: `Fetch your top five artists and songs over the last six months and
print them the way they will appear on the card, together with the
dominant genre of your top artists.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	printSummary(artists, songs)
	return nil
}

// fetchSummary reads both halves of the card data from the saved session.
func fetchSummary(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (stats.TopArtistsSummary, []string, error) {
	sess, err := openSession(cfg, logger)
	if err != nil {
		return stats.TopArtistsSummary{}, nil, err
	}

	agg := stats.NewAggregator(sess, logger)

	artists, err := agg.FetchTopArtists(ctx)
	if err != nil {
		return stats.TopArtistsSummary{}, nil, describeStatsErr(err)
	}
	songs, err := agg.FetchTopSongs(ctx)
	if err != nil {
		return stats.TopArtistsSummary{}, nil, describeStatsErr(err)
	}
	return artists, songs, nil
}

func describeStatsErr(err error) error {
	if errors.Is(err, stats.ErrNotAuthenticated) {
		return fmt.Errorf("not authenticated: run 'wrapped auth' first")
	}
	return fmt.Errorf("failed to fetch statistics: %w", err)
}

func printSummary(artists stats.TopArtistsSummary, songs []string) {
	widths := []int{statsColumnWidth}

	fmt.Println(columns(widths, card.TopArtistsHeading, card.TopSongsHeading))
	rows := max(len(artists.ArtistNames), len(songs))
	for i := 0; i < rows; i++ {
		left, right := "", ""
		if i < len(artists.ArtistNames) {
			left = fmt.Sprintf("%d  %s", i+1, card.Truncate(artists.ArtistNames[i]))
		}
		if i < len(songs) {
			right = fmt.Sprintf("%d  %s", i+1, card.Truncate(songs[i]))
		}
		fmt.Println(columns(widths, left, right))
	}

	fmt.Println()
	fmt.Println(card.TopGenreHeading)
	if artists.HasGenre {
		fmt.Println(card.FormatGenre(artists.DominantGenre))
	} else {
		fmt.Println("-")
	}

	if artists.RepresentativeImage != "" {
		fmt.Println()
		fmt.Printf("Artist photo: %s\n", artists.RepresentativeImage)
	}
}
