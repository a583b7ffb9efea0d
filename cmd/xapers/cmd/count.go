package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [query]",
		Short: "Count documents matching a query",
		Long: `Count the documents matching a query. With no query, count the
whole database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := "*"
			if len(args) == 1 {
				query = args[0]
			}

			db, err := openDatabase(false, false)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			n, err := db.Count(query)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}
