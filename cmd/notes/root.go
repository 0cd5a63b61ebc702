package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"markdown-notes/internal/editor"
	"markdown-notes/internal/tui"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notes",
	Short: "Markdown notes with live preview",
	Long: `notes edits Markdown notes in the terminal with a rendered preview.
Notes are stored in notedb when the remote section of the config is filled
in, otherwise in a local file on this device (demo mode).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := openSession(ctx, true)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctl := editor.NewController(ctx, sess.store, editor.WithAutosaveDelay(sess.cfg.Editor.AutosaveDelay()))
		defer ctl.Close()

		return tui.Run(ctx, tui.Deps{Store: sess.store, Controller: ctl, Prefs: sess.prefs})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		var initErr *initError
		if errors.As(err, &initErr) {
			fmt.Fprintln(os.Stderr, editor.NoticeFor(editor.OpInitialize, initErr.err).Text)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yml", "Path to the client config file")
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}
