// Package cmd provides the CLI commands for xapers.
package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/config"
	"github.com/xapers/xapers/internal/database"
	"github.com/xapers/xapers/internal/extract"
	"github.com/xapers/xapers/internal/logging"
	"github.com/xapers/xapers/pkg/version"
)

// Global flags shared by every subcommand.
var (
	rootFlag    string
	backendFlag string
	debugMode   bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the xapers CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xapers",
		Short: "Personal document indexing system",
		Long: `Xapers indexes document files with bibliographic metadata
(sources, tags, title, authors, year) into a local full-text search
database.

The database root defaults to ~/papers and can be overridden with
--root or XAPERS_ROOT.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("xapers version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&rootFlag, "root", "r", "", "Database root directory (default ~/papers)")
	cmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Index backend: bleve or sqlite (default from config)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.xapers/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newAddCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newCountCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newTagCmd())
	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newSourcesCmd())
	cmd.AddCommand(newTermsCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging wires slog according to the --debug flag and config.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openDatabase resolves the root and backend, then opens the database.
// create only applies to writable opens.
func openDatabase(writable, create bool) (*database.Database, error) {
	return openDatabaseWith(writable, create, nil)
}

// openDatabaseWith is openDatabase with an explicit extractor, so batch
// imports can share one extraction cache with the database.
func openDatabaseWith(writable, create bool, extractor extract.Extractor) (*database.Database, error) {
	root, err := config.FindRoot(rootFlag)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	backend := cfg.Database.Backend
	if backendFlag != "" {
		backend = backendFlag
	}

	return database.Open(root, database.Options{
		Backend:   backend,
		Writable:  writable,
		Create:    create,
		Extractor: extractor,
	})
}

// parseDocID accepts a document reference as "id:42" or "42".
func parseDocID(arg string) (uint64, error) {
	s := strings.TrimPrefix(arg, "id:")
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

// resolveDoc looks up a document by id reference, failing when absent.
func resolveDoc(db *database.Database, arg string) (*database.Document, error) {
	id, err := parseDocID(arg)
	if err != nil {
		return nil, err
	}
	doc, err := db.DocForDocID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("no document with id:%d", id)
	}
	return doc, nil
}
