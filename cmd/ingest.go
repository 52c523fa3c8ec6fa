package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/claro-ai/claro/internal/store"
)

var ingestUser string

var ingestCmd = &cobra.Command{
	Use:   "ingest <path|glob>...",
	Short: "Ingest PDF documents into the index",
	Long: `Ingests one or more PDF files: extracts text, chunks it, embeds the
chunks and builds a persistent per-document vector index. Glob
patterns with ** are supported, e.g. "contracts/**/*.pdf".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := buildApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		files, err := resolvePDFs(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no PDF files matched")
		}

		bar := progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Ingesting"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		ctx := cmd.Context()
		var failed int
		for _, path := range files {
			if err := ingestFile(ctx, a, path); err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "\n%s: %v\n", path, err)
			}
			bar.Add(1)
		}
		bar.Finish()

		fmt.Printf("Ingested %d of %d documents for user %q\n", len(files)-failed, len(files), ingestUser)
		if failed > 0 {
			return fmt.Errorf("%d documents failed", failed)
		}
		return nil
	},
}

// ingestFile registers and ingests a single PDF.
func ingestFile(ctx context.Context, a *app, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	docID, err := a.store.CreateDocument(ctx, ingestUser, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("registering document: %w", err)
	}

	status, err := a.pipe.Ingest(ctx, docID, source)
	if err != nil {
		return err
	}
	if status != store.StatusIndexed {
		return fmt.Errorf("unexpected final status %q", status)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "%s -> %s\n", path, docID)
	}
	return nil
}

// resolvePDFs expands the given paths and glob patterns into a
// deduplicated list of PDF files.
func resolvePDFs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] && strings.EqualFold(filepath.Ext(path), ".pdf") {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && !info.IsDir() {
			add(pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return files, nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestUser, "user", "cli", "owner recorded for the ingested documents")
	rootCmd.AddCommand(ingestCmd)
}
