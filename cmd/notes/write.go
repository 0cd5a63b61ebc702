package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"markdown-notes/internal/model"
)

var (
	writeTitle   string
	writeContent string
	writeFile    string
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a note and print its id",
	Long: `Create a note titled 新筆記 with empty content. --title, --content
and --file (use - for stdin) fill it in right away.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := fieldsFromFlags(cmd)
		if err != nil {
			return err
		}

		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		id, err := sess.store.CreateNote(cmd.Context())
		if err != nil {
			return err
		}
		if !fields.IsEmpty() {
			if err := sess.store.UpdateNote(cmd.Context(), id, fields); err != nil {
				return err
			}
		}

		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Update the title and/or content of a note",
	Long:  `Update only the fields given by flags; the others stay untouched.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := fieldsFromFlags(cmd)
		if err != nil {
			return err
		}
		if fields.IsEmpty() {
			return fmt.Errorf("nothing to update: pass --title, --content or --file")
		}

		sess, err := openSession(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer sess.Close()

		return sess.store.UpdateNote(cmd.Context(), args[0], fields)
	},
}

// fieldsFromFlags собирает частичное обновление из явно заданных флагов
func fieldsFromFlags(cmd *cobra.Command) (model.NoteFields, error) {
	var fields model.NoteFields

	if cmd.Flags().Changed("title") {
		title := writeTitle
		fields.Title = &title
	}

	switch {
	case cmd.Flags().Changed("file"):
		content, err := readContent(cmd, writeFile)
		if err != nil {
			return fields, err
		}
		fields.Content = &content
	case cmd.Flags().Changed("content"):
		content := writeContent
		fields.Content = &content
	}

	return fields, nil
}

func readContent(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(b), nil
}

func init() {
	for _, c := range []*cobra.Command{newCmd, editCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVar(&writeTitle, "title", "", "Note title")
		c.Flags().StringVar(&writeContent, "content", "", "Note content (Markdown)")
		c.Flags().StringVarP(&writeFile, "file", "f", "", "Read content from a file, - for stdin")
		c.MarkFlagsMutuallyExclusive("content", "file")
	}
}
