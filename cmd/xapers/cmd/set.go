package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/output"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <field> <value>",
		Short: "Set a single-valued document field",
		Long: `Set a single-valued field on a document, replacing any previous
value. Fields: title, authors, year, url.

Examples:
  xapers set id:3 title "Neutron Stars"
  xapers set 3 year 2021`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value := args[1], args[2]

			db, err := openDatabase(true, false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			doc, err := resolveDoc(db, args[0])
			if err != nil {
				return err
			}

			switch field {
			case "title":
				doc.SetTitle(value)
			case "authors":
				doc.SetAuthors(value)
			case "year":
				doc.SetYear(value)
			case "url":
				doc.SetURL(value)
			default:
				return fmt.Errorf("field %q is not settable (title, authors, year, url)", field)
			}

			if err := doc.Sync(); err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Successf("set %s on id:%d", field, doc.DocID())
			return nil
		},
	}
}
