package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/output"
)

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document from the database",
		Long: `Delete a document from the database. Asks for confirmation unless
--force is given. The underlying file is never touched.`,
		Args: cobra.ExactArgs(1),
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

			out := output.New(cmd.OutOrStdout())
			if !force {
				printDocument(out, doc)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Delete id:%d? [y/N] ", doc.DocID())
				reader := bufio.NewReader(cmd.InOrStdin())
				answer, _ := reader.ReadString('\n')
				if strings.ToLower(strings.TrimSpace(answer)) != "y" {
					out.Println("aborted")
					return nil
				}
			}

			if err := db.DeleteDocument(doc.DocID()); err != nil {
				return err
			}
			out.Successf("deleted id:%d", doc.DocID())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without confirmation")
	return cmd
}
