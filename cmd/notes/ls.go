package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"markdown-notes/internal/editor"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List notes, most recently updated first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		out := cmd.OutOrStdout()
		notes := sess.store.Notes()
		if len(notes) == 0 {
			fmt.Fprintln(out, editor.EmptyListMessage)
			return nil
		}

		now := time.Now()
		t := table.New().
			Border(lipgloss.HiddenBorder()).
			Headers("ID", "UPDATED", "TITLE", "EXCERPT")
		for _, n := range notes {
			t.Row(n.ID, editor.FormatRelative(n.UpdatedAt, now), editor.DisplayTitle(n), editor.Excerpt(n))
		}
		fmt.Fprintln(out, t.Render())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
