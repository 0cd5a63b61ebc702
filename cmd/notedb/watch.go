package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/spf13/cobra"

	"markdown-notes/internal/backend/remote"
	"markdown-notes/internal/config"
	"markdown-notes/internal/model"
)

var watchRemote = config.ConfigRemote{DialTimeout: 10}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sign in to a running notedb and print every snapshot of the notes collection",
	Long: `watch connects like a notes client does (anonymous sign-in, or a custom
token from mint-token) and logs each snapshot pushed by WatchCollection
until interrupted or the stream breaks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf("Connecting to notedb at %s...", watchRemote.Addr)
		b, err := remote.Dial(ctx, &watchRemote)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		defer b.Close()

		log.Printf("✅ Signed in as %s", b.UserID())
		log.Printf("📡 Watching %s", b.Path())

		streamErr := make(chan error, 1)
		var snapshots atomic.Int64
		unsubscribe, err := b.Subscribe(ctx, func(notes []model.Note) {
			logSnapshot(snapshots.Add(1), notes)
		}, func(err error) {
			streamErr <- err
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
		defer unsubscribe()

		select {
		case <-ctx.Done():
			log.Printf("👋 Stopped after %d snapshots", snapshots.Load())
			return nil
		case err := <-streamErr:
			return fmt.Errorf("stream closed: %w", err)
		}
	},
}

func logSnapshot(n int64, notes []model.Note) {
	log.Printf("\n📦 Snapshot #%d: %d notes", n, len(notes))
	for _, note := range notes {
		log.Printf("   %s  %s  %q", note.ID, note.UpdatedAt.Format("2006-01-02 15:04:05"), note.Title)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchRemote.Addr, "addr", "localhost:50051", "notedb gRPC address")
	watchCmd.Flags().StringVar(&watchRemote.APIKey, "api-key", "", "API key")
	watchCmd.Flags().StringVar(&watchRemote.AppID, "app", "markdown-note-cloud", "Application id in the collection path")
	watchCmd.Flags().StringVar(&watchRemote.CustomToken, "token", "", "Custom token (see mint-token); anonymous sign-in when empty")
	_ = watchCmd.MarkFlagRequired("api-key")
}
