package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jfmyers9/wrapped/internal/callback"
	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/spf13/cobra"
)

// authTimeout bounds how long we wait for the browser redirect.
const authTimeout = 5 * time.Minute

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Spotify",
	Long: `Authenticate with Spotify to read your top artists and songs.

This command will guide you through the authorization code flow with PKCE:
1. You'll be prompted for your Spotify client id if none is configured
2. A browser URL will be printed for you to authorize the application
3. A local listener on the redirect URI receives the authorization code
4. The resulting token is saved to the session file in the data directory

Register an application and its redirect URI at:
https://developer.spotify.com/dashboard`,
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := setupLogger(logFile, logLevel)

	fmt.Println("Spotify Authentication")
	fmt.Println("======================")
	fmt.Println()

	if cfg.Spotify.ClientID == "" {
		reader := bufio.NewReader(os.Stdin)
		fmt.Print("Enter your Spotify client id: ")
		clientID, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read client id: %w", err)
		}
		cfg.Spotify.ClientID = strings.TrimSpace(clientID)
		if cfg.Spotify.ClientID == "" {
			return fmt.Errorf("a client id is required")
		}
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("Saved client id to %s\n\n", config.GetConfigDir())
	}

	sess, err := openSession(cfg, logger)
	if err != nil {
		return err
	}

	server, err := callback.New(cfg.Spotify.RedirectURI, logger)
	if err != nil {
		return err
	}
	server.Start()
	defer func() { _ = server.Shutdown() }()

	authURL, _, err := sess.Begin()
	if err != nil {
		return fmt.Errorf("failed to start authorization: %w", err)
	}

	fmt.Println("Open this URL in your browser and approve access:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()
	fmt.Printf("Waiting for the redirect to %s ...\n", cfg.Spotify.RedirectURI)

	waitCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	result, err := server.Wait(waitCtx)
	if err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	if err := sess.Complete(ctx, result.State, result.Code); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Authenticated. Run 'wrapped stats' to see your summary.")
	return nil
}
