package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var themeCmd = &cobra.Command{
	Use:       "theme [light|dark|toggle]",
	Short:     "Show or change the color theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"light", "dark", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		if len(args) == 1 {
			if args[0] == "toggle" {
				_, err = sess.prefs.ToggleTheme()
			} else {
				err = sess.prefs.SetTheme(args[0])
			}
			if err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), sess.prefs.Theme())
		return nil
	},
}

var bannerCmd = &cobra.Command{
	Use:       "banner [dismiss|reset]",
	Short:     "Show or change whether the demo mode banner is dismissed",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dismiss", "reset"},
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		if len(args) == 1 {
			switch args[0] {
			case "dismiss":
				err = sess.prefs.DismissBanner()
			case "reset":
				err = sess.prefs.ResetBanner()
			default:
				err = fmt.Errorf("unknown action %q", args[0])
			}
			if err != nil {
				return err
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "dismissed: %t\n", sess.prefs.BannerDismissed())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(bannerCmd)
}
