package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"markdown-notes/internal/config"
	"markdown-notes/internal/logger"
	"markdown-notes/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC server and the HTTP gateway",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, err := config.Load[config.ServerConfig](configFile)
		if err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}

		closer, err := logger.Setup(appConfig.Logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		srv, err := server.NewServer(appConfig)
		if err != nil {
			return err
		}
		if err := srv.Initialize(); err != nil {
			return err
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		errChan := srv.Start()

		select {
		case err := <-errChan:
			log.Printf("Server error: %v", err)
			_ = srv.Shutdown()
			return err
		case sig := <-sigChan:
			log.Printf("Received signal: %v. Starting graceful shutdown...", sig)
		}

		if err := srv.Shutdown(); err != nil {
			return err
		}
		log.Println("notedb stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
