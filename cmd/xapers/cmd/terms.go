package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTermsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "terms <field>",
		Short: "List the distinct values of a field across the database",
		Long: `List every distinct value stored under a field, one per line.
Useful for tab completion and corpus inspection.

Examples:
  xapers terms tag
  xapers terms source
  xapers terms year`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(false, false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			values, err := db.GetTerms(args[0])
			if err != nil {
				return err
			}
			for _, v := range values {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
			}
			return nil
		},
	}
}
