package cmd

import (
	"fmt"

	"github.com/jfmyers9/wrapped/internal/config"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved Spotify session",
	RunE:  runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sess, err := openSession(cfg, setupLogger(logFile, logLevel))
	if err != nil {
		return err
	}

	if err := sess.Logout(); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}

	fmt.Println("✓ Logged out")
	return nil
}
