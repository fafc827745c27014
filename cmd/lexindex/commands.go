package main

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lexindex/internal/domain"
	"lexindex/internal/tui"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add <id> <source-locator>",
		Short: "Register a document and index it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			id, locator := args[0], args[1]
			if title == "" {
				title = defaultTitle(locator)
			}
			ctx := cmd.Context()
			if err := a.docs.Create(ctx, domain.Document{
				ID:            id,
				Title:         title,
				SourceLocator: locator,
				Status:        domain.StatusPending,
			}); err != nil {
				return err
			}
			return a.svc.IndexDocument(ctx, id, locator, title)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title (default: derived from the locator)")
	return cmd
}

func newIndexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "index <id>",
		Short: "Index a registered document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			doc, err := a.docs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.svc.IndexDocument(cmd.Context(), doc.ID, doc.SourceLocator, doc.Title)
		},
	}
}

func newReindexCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <id>",
		Short: "Delete a document's points and index it again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			doc, err := a.docs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.svc.ReindexDocument(cmd.Context(), doc.ID, doc.SourceLocator, doc.Title)
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a document from the index and the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.svc.RemoveDocumentFromIndex(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.docs.Delete(cmd.Context(), args[0])
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered documents and their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			docs, err := a.docs.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, doc := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-10s %-30s %s\n",
					doc.ID, doc.Status, doc.Title, doc.SourceLocator)
			}
			return nil
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var k int
	var documentID string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a similarity search over indexed chunks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			filter := searchFilter(documentID)
			results, err := a.svc.SimilaritySearch(cmd.Context(), strings.Join(args, " "), k, filter)
			if err != nil {
				return err
			}
			for i, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. [%.3f] %s (doc %s, chunk %d)\n   %s\n",
					i+1, r.Score, r.Title, r.DocumentID, r.ChunkIndex, snippet(r.Text, 200))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 5, "maximum number of results")
	cmd.Flags().StringVar(&documentID, "document", "", "restrict results to one document id")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var k int
	var documentID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive search console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()
			m := tui.New(a.svc, searchFilter(documentID), k)
			_, err = tea.NewProgram(m).Run()
			return err
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 10, "maximum number of results per query")
	cmd.Flags().StringVar(&documentID, "document", "", "restrict results to one document id")
	return cmd
}

func openApp(opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(cfg)
}

func searchFilter(documentID string) *domain.SearchFilter {
	if documentID == "" {
		return nil
	}
	return &domain.SearchFilter{DocumentID: documentID}
}

func defaultTitle(locator string) string {
	base := filepath.Base(locator)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
