package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/jfmyers9/wrapped/internal/minter"
	"github.com/jfmyers9/wrapped/internal/stats"
	"github.com/spf13/cobra"
)

var mintYes bool

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Render, publish and mint your card",
	Long: `Render your listening summary, publish the card and its metadata to
IPFS and mint it to your wallet.

A wallet holds at most one card. If you already hold one it is burned
after the new card is published, its image and metadata are unpinned and
the new card is minted in its place. Failures to unpin are reported as
warnings and do not stop the mint.

Failed attempts are not retried: fix the reported problem and run the
command again. Use 'wrapped history' to see earlier attempts.`,
	RunE: runMint,
}

func init() {
	rootCmd.AddCommand(mintCmd)

	mintCmd.Flags().BoolVarP(&mintYes, "yes", "y", false, "Do not ask before replacing an existing card")
}

var stateLabels = map[minter.State]string{
	minter.StateFetchingStats:      "Fetching listening statistics",
	minter.StateCompositing:        "Rendering card",
	minter.StatePublishingImage:    "Publishing image",
	minter.StatePublishingMetadata: "Publishing metadata",
	minter.StateBurningOld:         "Burning previous card",
	minter.StateUnpinning:          "Unpinning previous assets",
	minter.StateMinting:            "Minting",
}

func runMint(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.RequireMint(); err != nil {
		return err
	}
	logger := setupLogger(logFile, logLevel)

	if !mintYes && !confirm("Minting replaces any card you already hold; the previous one will be burned. Continue? [y/N]: ") {
		fmt.Println("Aborted")
		return nil
	}

	sess, err := openSession(cfg, logger)
	if err != nil {
		return err
	}
	if !sess.Authenticated() {
		return fmt.Errorf("not authenticated: run 'wrapped auth' first")
	}

	pub, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}

	chain, err := dialLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	guard, closeGuard, err := newGuard(ctx, cfg, j)
	if err != nil {
		return err
	}
	defer closeGuard()

	m, err := minter.New(minter.Config{
		Stats:      stats.NewAggregator(sess, logger),
		Compositor: newCompositor(cfg, logger),
		Publisher:  pub,
		Ledger:     chain,
		Journal:    j,
		Guard:      guard,
		ChainID:    cfg.Ledger.ChainID,
		Timeout:    cfg.HTTP.Timeout,
		Observer: func(s minter.State) {
			if label, ok := stateLabels[s]; ok {
				fmt.Printf("→ %s\n", label)
			}
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	result, err := m.Mint(ctx)
	if err != nil {
		return describeMintErr(err, cfg.Ledger.ChainID)
	}

	fmt.Println()
	fmt.Println("✓ Card minted")
	fmt.Printf("  Wallet:    %s\n", result.Owner)
	fmt.Printf("  Token URI: %s\n", result.TokenURI)
	fmt.Printf("  Image:     ipfs://%s\n", result.ImageCID)
	fmt.Printf("  Tx:        %s\n", result.TxHash)
	if result.Replaced != nil {
		fmt.Printf("  Replaced:  token %s\n", result.Replaced)
	}
	for _, w := range result.Warnings {
		fmt.Printf("  Warning:   %s\n", w)
	}
	return nil
}

func describeMintErr(err error, chainID int64) error {
	if errors.Is(err, minter.ErrMintInProgress) {
		return fmt.Errorf("another mint for this wallet is still running")
	}

	var stepErr *minter.StepError
	if !errors.As(err, &stepErr) {
		return err
	}

	switch stepErr.Kind {
	case minter.KindAuthentication:
		return fmt.Errorf("%w\nhint: run 'wrapped auth' or check pinata.jwt", err)
	case minter.KindAssetLoad:
		return fmt.Errorf("%w\nhint: check the card.* asset paths and the artist photo URL", err)
	case minter.KindLedger:
		if errors.Is(err, minter.ErrWrongNetwork) {
			return fmt.Errorf("%w\nhint: ledger.rpc_url must point at chain %d", err, chainID)
		}
		return fmt.Errorf("%w\nhint: check the wallet balance and ledger.contract", err)
	}
	return err
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
