package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"markdown-notes/internal/auth"
	"markdown-notes/internal/config"
)

var (
	mintUID string
	mintTTL time.Duration
)

var mintTokenCmd = &cobra.Command{
	Use:   "mint-token",
	Short: "Issue a custom token for a fixed user id",
	Long: `mint-token signs a custom token with the server secret. A client
configured with remote.custom_token exchanges it for an id token and
works as that user instead of a fresh anonymous one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appConfig, err := config.Load[config.ServerConfig](configFile)
		if err != nil {
			return fmt.Errorf("error initializing config: %w", err)
		}

		issuer, err := auth.NewIssuer(appConfig.Auth.Secret, appConfig.Auth.Issuer,
			time.Duration(appConfig.Auth.TokenTTL)*time.Minute)
		if err != nil {
			return err
		}

		token, err := issuer.MintCustomToken(mintUID, mintTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mintTokenCmd)
	mintTokenCmd.Flags().StringVar(&mintUID, "uid", "", "User id the token is issued for")
	mintTokenCmd.Flags().DurationVar(&mintTTL, "ttl", 24*time.Hour, "Token lifetime")
	_ = mintTokenCmd.MarkFlagRequired("uid")
}
