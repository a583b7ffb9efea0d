package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/output"
)

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <id> +tag|-tag ...",
		Short: "Add or remove document tags",
		Long: `Add (+tag) or remove (-tag) tags on a document. Adding a present
tag or removing an absent one is a no-op.

Examples:
  xapers tag id:3 +to-read
  xapers tag 3 +physics -to-read`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			add, remove, err := parseTagOps(args[1:])
			if err != nil {
				return err
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

			doc.AddTags(add)
			doc.RemoveTags(remove)
			if err := doc.Sync(); err != nil {
				return err
			}

			out := output.New(cmd.OutOrStdout())
			out.Field("tags", strings.Join(doc.GetTags(), " "))
			return nil
		},
	}

	// -tag arguments must reach the command as positionals
	cmd.Flags().SetInterspersed(false)
	return cmd
}

// parseTagOps splits +tag/-tag arguments into add and remove lists.
func parseTagOps(args []string) (add, remove []string, err error) {
	for _, a := range args {
		switch {
		case strings.HasPrefix(a, "+") && len(a) > 1:
			add = append(add, a[1:])
		case strings.HasPrefix(a, "-") && len(a) > 1:
			remove = append(remove, a[1:])
		default:
			return nil, nil, fmt.Errorf("invalid tag operation %q, expected +tag or -tag", a)
		}
	}
	return add, remove, nil
}
