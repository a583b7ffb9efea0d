package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/output"
)

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document's metadata and summary",
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

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(toJSONDocument(doc))
			}

			out := output.New(cmd.OutOrStdout())
			printDocument(out, doc)
			if data := doc.GetData(); data != "" {
				out.Newline()
				out.Println(data)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}
