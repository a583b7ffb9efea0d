package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/output"
)

func newSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage document source entries",
		Long: `Manage a document's source entries (doi, arxiv, isbn, ...). Each
entry pairs a source name with the document's id within that source.`,
	}

	cmd.AddCommand(newSourcesListCmd())
	cmd.AddCommand(newSourcesAddCmd())
	cmd.AddCommand(newSourcesRemoveCmd())
	return cmd
}

func newSourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <id>",
		Short: "List a document's source entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(false, false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			doc, err := resolveDoc(db, args[0])
			if err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			for source, sid := range doc.GetSources() {
				out.Field(source, sid)
			}
			return nil
		},
	}
}

func newSourcesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <id> <name:sid>",
		Short: "Add a source entry to a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, sid, ok := strings.Cut(args[1], ":")
			if !ok || name == "" || sid == "" {
				return fmt.Errorf("invalid source %q, expected name:sid", args[1])
			}

			db, err := openDatabase(true, false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			doc, err := resolveDoc(db, args[0])
			if err != nil {
				return err
			}

			doc.AddSource(strings.ToLower(name), sid)
			if err := doc.Sync(); err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Successf("added %s:%s to id:%d", strings.ToLower(name), sid, doc.DocID())
			return nil
		},
	}
}

func newSourcesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id> <name>",
		Short: "Remove a source entry from a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(true, false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			doc, err := resolveDoc(db, args[0])
			if err != nil {
				return err
			}

			doc.RemoveSource(strings.ToLower(args[1]))
			if err := doc.Sync(); err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Successf("removed %s from id:%d", strings.ToLower(args[1]), doc.DocID())
			return nil
		},
	}
}
