package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/jfmyers9/wrapped/internal/journal"
	"github.com/spf13/cobra"
)

var unpinForce bool

var unpinCmd = &cobra.Command{
	Use:   "unpin <attempt-id-or-cid>...",
	Short: "Unpin assets left behind by earlier attempts",
	Long: `Unpin content from the pinning service.

Each argument is either a content identifier or the id (or id prefix
shown by 'wrapped history') of a journaled attempt, in which case both the
image and the metadata of that attempt are unpinned.

The assets of your most recent successful mint back the card you hold,
so they are only unpinned with --force.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUnpin,
}

func init() {
	rootCmd.AddCommand(unpinCmd)

	unpinCmd.Flags().BoolVar(&unpinForce, "force", false, "Also unpin the assets of the card you currently hold")
}

func runUnpin(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(logFile, logLevel)

	pub, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	var failed int
	for _, arg := range args {
		attempt, err := findAttempt(ctx, j, arg)
		if err != nil {
			return err
		}

		if attempt == nil {
			held, err := backsHeldCard(ctx, j, arg)
			if err != nil {
				return err
			}
			if held && !unpinForce {
				fmt.Printf("✗ %s backs the card you hold; use --force to unpin it anyway\n", arg)
				failed++
				continue
			}
			if err := pub.Unpin(ctx, arg); err != nil {
				fmt.Printf("✗ %s: %v\n", arg, err)
				failed++
				continue
			}
			fmt.Printf("✓ Unpinned %s\n", arg)
			continue
		}

		if !unpinForce {
			latest, err := latestDone(ctx, j, attempt.Owner)
			if err != nil {
				return err
			}
			if latest != nil && latest.ID == attempt.ID {
				fmt.Printf("✗ %s backs the card you hold; use --force to unpin it anyway\n", shortID(attempt.ID))
				failed++
				continue
			}
		}

		ok := true
		for _, cid := range []string{attempt.MetadataCID, attempt.ImageCID} {
			if cid == "" {
				continue
			}
			if err := pub.Unpin(ctx, cid); err != nil {
				fmt.Printf("✗ %s: %v\n", cid, err)
				ok = false
				continue
			}
			fmt.Printf("✓ Unpinned %s\n", cid)
		}
		if !ok {
			failed++
			continue
		}
		if err := j.MarkUnpinned(ctx, attempt.ID); err != nil {
			logger.Warn().Err(err).Str("attempt", attempt.ID).Msg("Failed to record unpin")
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d unpins failed", failed, len(args))
	}
	return nil
}

// findAttempt resolves arg to a journaled attempt by id or unique id
// prefix. It returns nil when arg names no attempt.
func findAttempt(ctx context.Context, j *journal.Journal, arg string) (*journal.Attempt, error) {
	a, err := j.Get(ctx, arg)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, journal.ErrNotFound) {
		return nil, err
	}

	attempts, err := j.Recent(ctx, 0)
	if err != nil {
		return nil, err
	}

	var match *journal.Attempt
	for i := range attempts {
		if !strings.HasPrefix(attempts[i].ID, arg) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("attempt prefix %q is ambiguous", arg)
		}
		match = &attempts[i]
	}
	return match, nil
}

// backsHeldCard reports whether cid is the metadata or image of the most
// recent successful mint by the owner that published it. Content the journal
// never recorded is not protected.
func backsHeldCard(ctx context.Context, j *journal.Journal, cid string) (bool, error) {
	published, err := j.ByCID(ctx, cid)
	if errors.Is(err, journal.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	latest, err := latestDone(ctx, j, published.Owner)
	if err != nil || latest == nil {
		return false, err
	}
	return cid == latest.MetadataCID || cid == latest.ImageCID, nil
}

func latestDone(ctx context.Context, j *journal.Journal, owner string) (*journal.Attempt, error) {
	latest, err := j.LatestDone(ctx, owner)
	if errors.Is(err, journal.ErrNotFound) {
		return nil, nil
	}
	return latest, err
}
