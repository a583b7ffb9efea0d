package cmd

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/xapers/xapers/internal/database"
	xerrors "github.com/xapers/xapers/internal/errors"
	"github.com/xapers/xapers/internal/extract"
	"github.com/xapers/xapers/internal/output"
)

// importOptions holds CLI flags for import.
type importOptions struct {
	tags []string
	jobs int
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Index every document file under a directory",
		Long: `Walk a directory under the database root and index every file
found. Already-indexed files are skipped; extraction failures skip
the file and continue.

Extraction runs in parallel; index writes are serialized.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Tag applied to every imported document (repeatable)")
	cmd.Flags().IntVar(&opts.jobs, "jobs", runtime.NumCPU(), "Parallel extraction workers")

	return cmd
}

func runImport(cmd *cobra.Command, dir string, opts importOptions) error {
	out := output.New(cmd.OutOrStdout())

	extractor := extract.NewCachedExtractor(extract.NewTextExtractor(), 0)
	db, err := openDatabaseWith(true, true, extractor)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	files, err := collectFiles(db.Root(), dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		out.Println("nothing to import")
		return nil
	}

	// Warm the extraction cache in parallel. AddDocument below then hits
	// the cache instead of the filesystem.
	g := new(errgroup.Group)
	g.SetLimit(opts.jobs)
	for _, f := range files {
		f := f
		g.Go(func() error {
			_, _ = extractor.Extract(f)
			return nil
		})
	}
	_ = g.Wait()

	var added, skipped, failed int
	for _, f := range files {
		doc, err := db.AddDocument(f, database.Metadata{Tags: opts.tags})
		switch {
		case err == nil:
			added++
			out.Successf("added id:%d %s", doc.DocID(), f)
		case xerrors.GetCode(err) == xerrors.ErrCodeDuplicateDocument:
			skipped++
			slog.Debug("import_skip_duplicate", slog.String("path", f))
		case xerrors.GetCode(err) == xerrors.ErrCodeExtractionFailed:
			failed++
			out.Warningf("skipped %s: %v", f, err)
		default:
			return err
		}
	}

	out.Newline()
	out.Successf("imported %d documents (%d already indexed, %d failed)", added, skipped, failed)
	return nil
}

// collectFiles gathers the regular files under dir as absolute paths,
// skipping dotfiles and the .xapers directory itself.
func collectFiles(root, dir string) ([]string, error) {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		files = append(files, path)
		return nil
	})
	return files, err
}
