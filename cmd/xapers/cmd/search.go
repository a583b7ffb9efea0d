package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xapers/xapers/internal/database"
	"github.com/xapers/xapers/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit  int
	format string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the document database",
		Long: `Search the document database.

Queries combine free text with field clauses. Boolean fields (id,
tag, year, source) match exactly; text fields (title, author) and
bare words are stemmed. Clauses are ANDed. "*" matches everything.

Examples:
  xapers search "quantum measurement"
  xapers search tag:physics year:2021
  xapers search 'author:smith title:"neutron stars"'
  xapers search "*" --limit 0`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Maximum number of results (0 for all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.New(cmd.OutOrStdout())

	db, err := openDatabase(false, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", opts.limit))
	docs, err := db.Search(query, opts.limit)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("results", docs.Len()))

	switch opts.format {
	case "json":
		return formatJSON(cmd, docs)
	default:
		return formatText(out, query, docs)
	}
}

// formatText prints one block per document.
func formatText(out *output.Writer, query string, docs *database.Documents) error {
	if docs.Len() == 0 {
		out.Println(fmt.Sprintf("No results found for %q", query))
		return nil
	}

	for docs.Next() {
		printDocument(out, docs.Doc())
		out.Newline()
	}
	return docs.Err()
}

// printDocument renders one document block, shared with show.
func printDocument(out *output.Writer, doc *database.Document) {
	out.Header(fmt.Sprintf("id:%d", doc.DocID()))
	if title := doc.GetTitle(); title != "" {
		out.Field("title", title)
	}
	if authors := doc.GetAuthors(); authors != "" {
		out.Field("authors", authors)
	}
	if year := doc.GetYear(); year != "" {
		out.Field("year", year)
	}
	for source, sid := range doc.GetSources() {
		out.Field("source", source+":"+sid)
	}
	if url := doc.GetURL(); url != "" {
		out.Field("url", url)
	}
	if tags := doc.GetTags(); len(tags) > 0 {
		out.Field("tags", strings.Join(tags, " "))
	}
	for _, path := range doc.GetPaths() {
		out.Field("file", path)
	}
}

// jsonDocument is the machine-readable projection of a document.
type jsonDocument struct {
	DocID   uint64            `json:"docid"`
	Score   float64           `json:"score"`
	Title   string            `json:"title,omitempty"`
	Authors string            `json:"authors,omitempty"`
	Year    string            `json:"year,omitempty"`
	URL     string            `json:"url,omitempty"`
	Sources map[string]string `json:"sources,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	Paths   []string          `json:"paths,omitempty"`
	Summary string            `json:"summary,omitempty"`
}

func toJSONDocument(doc *database.Document) jsonDocument {
	jd := jsonDocument{
		DocID:   doc.DocID(),
		Score:   doc.Score(),
		Title:   doc.GetTitle(),
		Authors: doc.GetAuthors(),
		Year:    doc.GetYear(),
		URL:     doc.GetURL(),
		Tags:    doc.GetTags(),
		Paths:   doc.GetPaths(),
		Summary: doc.GetData(),
	}
	if sources := doc.GetSources(); len(sources) > 0 {
		jd.Sources = sources
	}
	return jd
}

// formatJSON prints results as a JSON array.
func formatJSON(cmd *cobra.Command, docs *database.Documents) error {
	results := make([]jsonDocument, 0, docs.Len())
	for docs.Next() {
		results = append(results, toJSONDocument(docs.Doc()))
	}
	if err := docs.Err(); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
