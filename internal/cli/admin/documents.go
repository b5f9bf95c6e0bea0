package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/vaidya/internal/domain"
	"github.com/cloo-solutions/vaidya/internal/pagination"
	"github.com/cloo-solutions/vaidya/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func DocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   "Manage the document corpus",
		Long:    "Add, reindex, search and inspect documents in the medical corpus",
	}

	cmd.AddCommand(DocumentsAddCmd())
	cmd.AddCommand(DocumentsReprocessCmd())
	cmd.AddCommand(DocumentsDeleteVectorsCmd())
	cmd.AddCommand(DocumentsSearchCmd())
	cmd.AddCommand(DocumentsStatsCmd())

	return cmd
}

// openApp loads config, connects and wires the services for one command.
func openApp(ctx context.Context) (*app, func(), error) {
	cfg, pool, err := getDBPool(ctx)
	if err != nil {
		return nil, nil, err
	}
	a, err := newApp(ctx, cfg, pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return a, pool.Close, nil
}

func DocumentsAddCmd() *cobra.Command {
	var (
		title    string
		docType  string
		source   string
		keywords []string
		authors  []string
		upload   bool
		async    bool
	)

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Add a plain-text document to the corpus",
		Long: `Add a plain-text document to the corpus and index it.

With --upload the text is stored in object storage and only its key is kept
in the database. With --async the document is queued for the ingest worker
instead of being indexed immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			t, err := domain.ParseDocumentType(docType)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			if title == "" {
				title = titleFromPath(args[0])
			}

			ctx := context.Background()
			a, closeFn, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			doc := &domain.Document{
				ID:       uuid.NewString(),
				Title:    title,
				Source:   source,
				Type:     t,
				Keywords: keywords,
				Authors:  authors,
			}
			if upload {
				if a.storage == nil {
					return fmt.Errorf("--upload requires S3 configuration (VAIDYA_S3_ENDPOINT)")
				}
				doc.ContentKey = service.DocumentContentKey(doc.ID)
				if err := a.storage.PutDocumentText(ctx, doc.ContentKey, string(raw)); err != nil {
					return fmt.Errorf("failed to upload document: %w", err)
				}
			} else {
				doc.Content = string(raw)
			}

			result := map[string]any{"id": doc.ID, "title": doc.Title}
			if async {
				job, err := a.ingest.SubmitDocument(ctx, doc)
				if err != nil {
					return fmt.Errorf("failed to queue document: %w", err)
				}
				result["job_id"] = job.ID
				result["status"] = string(job.Status)
			} else {
				if err := a.ingest.CreateDocument(ctx, doc); err != nil {
					return fmt.Errorf("failed to create document: %w", err)
				}
				n, err := a.ingest.IndexDocument(ctx, doc)
				if err != nil {
					return fmt.Errorf("failed to index document: %w", err)
				}
				result["vectors"] = n
				result["status"] = string(domain.DocumentStatusProcessed)
			}

			if outputFormat == "json" {
				return printJSON(result)
			}
			if async {
				fmt.Printf("Document queued: %s (%s), job %s\n", doc.Title, doc.ID, result["job_id"])
			} else {
				fmt.Printf("Document indexed: %s (%s), %d vectors\n", doc.Title, doc.ID, result["vectors"])
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Document title (default: file name)")
	cmd.Flags().StringVar(&docType, "type", string(domain.DocumentTypeGuideline),
		"Document type (medical_guideline, drug_info, research_paper, clinical_trial, textbook)")
	cmd.Flags().StringVar(&source, "source", "", "Publisher or origin of the document")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "Keyword (repeatable)")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "Author (repeatable)")
	cmd.Flags().BoolVar(&upload, "upload", false, "Store the text in object storage")
	cmd.Flags().BoolVar(&async, "async", false, "Queue for the ingest worker instead of indexing now")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func DocumentsReprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reprocess <document-id>",
		Short: "Rebuild a document's vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetBool("queue")

			ctx := context.Background()
			a, closeFn, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if queue {
				job, err := a.ingest.EnqueueReprocess(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to queue document: %w", err)
				}
				fmt.Printf("Reprocess queued: job %s\n", job.ID)
				return nil
			}

			n, err := a.ingest.ReindexDocument(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to reprocess document: %w", err)
			}
			fmt.Printf("Document %s reindexed: %d vectors\n", args[0], n)
			return nil
		},
	}

	cmd.Flags().Bool("queue", false, "Queue for the ingest worker instead of reindexing now")

	return cmd
}

func DocumentsDeleteVectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-vectors <document-id>",
		Short: "Remove every vector of a document from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, closeFn, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := a.ingest.DeleteDocument(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete vectors: %w", err)
			}
			fmt.Printf("Vectors deleted for document %s\n", args[0])
			return nil
		},
	}
}

func DocumentsSearchCmd() *cobra.Command {
	var (
		limit   int
		cursor  string
		types   []string
		keyword bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFormat, _ := cmd.Flags().GetString("output")

			offset, err := pagination.DecodeCursor(cursor)
			if err != nil {
				return err
			}
			input := service.SearchInput{
				Query:        strings.Join(args, " "),
				Limit:        limit,
				Offset:       offset,
				SkipSemantic: keyword,
			}
			for _, t := range types {
				dt, err := domain.ParseDocumentType(t)
				if err != nil {
					return err
				}
				input.Filters.Types = append(input.Filters.Types, dt)
			}

			ctx := context.Background()
			a, closeFn, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			outcome, err := a.search.SearchDocuments(ctx, input)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			page := pagination.NewPage(outcome.Results, offset, outcome.Total)

			if outputFormat == "json" {
				items := make([]map[string]any, len(page.Items))
				for i, r := range page.Items {
					items[i] = map[string]any{
						"document_id": r.ID,
						"chunk_id":    r.ChunkID,
						"title":       r.Title(),
						"score":       r.Score,
					}
				}
				return printJSON(map[string]any{
					"results":  items,
					"total":    outcome.Total,
					"status":   outcome.Status,
					"cursor":   page.Cursor,
					"has_more": page.HasMore,
				})
			}

			if len(page.Items) == 0 {
				fmt.Println("No documents found")
				return nil
			}
			if outcome.Degraded() {
				fmt.Println("(degraded: one retrieval path failed)")
			}
			for i, r := range page.Items {
				fmt.Printf("%2d. [%.3f] %s (%s)\n", offset+i+1, r.Score, r.Title(), r.ID)
			}
			if page.HasMore {
				fmt.Printf("\nMore results available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().StringSliceVar(&types, "type", nil, "Restrict to document type (repeatable)")
	cmd.Flags().BoolVar(&keyword, "keyword", false, "Keyword matching only")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func DocumentsStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vector index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, closeFn, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := a.search.IndexStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to read index stats: %w", err)
			}
			return printJSON(stats)
		},
	}
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
