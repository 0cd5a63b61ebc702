package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"markdown-notes/internal/editor"
)

var rmYes bool

var rmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a note",
	Long:    `Delete a note after confirmation. Deleting an unknown id is not an error.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		ctl := editor.NewController(cmd.Context(), sess.store)
		defer ctl.Close()

		confirm := func(prompt string) bool {
			if rmYes {
				return true
			}
			fmt.Fprint(cmd.OutOrStdout(), prompt+" [y/N] ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			return strings.EqualFold(strings.TrimSpace(answer), "y")
		}

		_, err = ctl.Delete(cmd.Context(), args[0], confirm)
		return err
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
	rmCmd.Flags().BoolVarP(&rmYes, "yes", "y", false, "Do not ask for confirmation")
}
