package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/database"
	xerrors "github.com/xapers/xapers/internal/errors"
	"github.com/xapers/xapers/internal/output"
)

// addOptions holds CLI flags for add.
type addOptions struct {
	sources []string // "name:id" pairs
	url     string
	title   string
	authors string
	year    string
	tags    []string
}

func newAddCmd() *cobra.Command {
	var opts addOptions

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Index a document file with metadata",
		Long: `Index a document file into the database.

The file must live under the database root; its path is stored
root-relative, so the corpus can be relocated wholesale.

Examples:
  xapers add 2021/quantum.txt --title "Quantum Measurement" --year 2021
  xapers add paper.txt --source doi:10.1000/xyz --tag physics --tag to-read`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.sources, "source", nil, "Source entry as name:id (repeatable, e.g. doi:10.1000/xyz)")
	cmd.Flags().StringVar(&opts.url, "url", "", "Document URL")
	cmd.Flags().StringVar(&opts.title, "title", "", "Document title")
	cmd.Flags().StringVar(&opts.authors, "authors", "", "Author list")
	cmd.Flags().StringVar(&opts.year, "year", "", "Publication year")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Tag (repeatable)")

	return cmd
}

func runAdd(cmd *cobra.Command, path string, opts addOptions) error {
	out := output.New(cmd.OutOrStdout())

	sources, err := parseSourcePairs(opts.sources)
	if err != nil {
		return err
	}

	db, err := openDatabase(true, true)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	doc, err := db.AddDocument(path, database.Metadata{
		Sources: sources,
		URL:     opts.url,
		Title:   opts.title,
		Authors: opts.authors,
		Year:    opts.year,
		Tags:    opts.tags,
	})
	if err != nil {
		if docid, ok := xerrors.DuplicateDocID(err); ok {
			out.Warningf("%s is already indexed as id:%d", path, docid)
		}
		return err
	}

	out.Successf("added id:%d %s", doc.DocID(), path)
	return nil
}

// parseSourcePairs parses repeated name:id flags into a source map.
func parseSourcePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	sources := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, id, ok := strings.Cut(p, ":")
		if !ok || name == "" || id == "" {
			return nil, fmt.Errorf("invalid source %q, expected name:id", p)
		}
		sources[strings.ToLower(name)] = id
	}
	return sources, nil
}
