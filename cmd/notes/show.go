package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"markdown-notes/internal/editor"
	"markdown-notes/internal/render"
	"markdown-notes/internal/store"
)

var (
	showHTML  bool
	showWidth int
)

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Render a note",
	Long:  `Render a note for the terminal, or as sanitized HTML with --html.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		note, ok := sess.store.Note(args[0])
		if !ok {
			return fmt.Errorf("note %s: %w", args[0], store.ErrNotFound)
		}

		out := cmd.OutOrStdout()
		if showHTML {
			html, err := render.HTML(note.Content)
			if err != nil {
				return fmt.Errorf("%s: %w", editor.RenderErrorMessage, err)
			}
			fmt.Fprint(out, html)
			return nil
		}

		text, err := render.Terminal("# "+editor.DisplayTitle(note)+"\n\n"+note.Content, showWidth, sess.prefs.Theme())
		if err != nil {
			return fmt.Errorf("%s: %w", editor.RenderErrorMessage, err)
		}
		fmt.Fprint(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showHTML, "html", false, "Output sanitized HTML")
	showCmd.Flags().IntVarP(&showWidth, "width", "w", 80, "Wrap width for terminal output")
}
