package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <glob...>",
	Short: "Index lecture files into the persisted index",
	Long: `Index every file matching the given patterns. Patterns support ** and are
resolved relative to the current directory. Re-ingesting a file replaces its
earlier chunks.

Examples:
  recall ingest lecture1.pdf
  recall ingest "lectures/**/*.{pdf,docx}"`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: usePersistedIndex,
	RunE:    runIngest,
}

// usePersistedIndex moves one-shot commands off the in-memory index, which
// would be gone by the next invocation.
func usePersistedIndex(cmd *cobra.Command, _ []string) error {
	if settings.Index.Backend == config.IndexBackendMemory {
		settings.Index.Backend = config.IndexBackendBolt
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	paths, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %v", args)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := buildApp(ctx, settings)
	if err != nil {
		return err
	}
	defer a.Close()

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Indexing"),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(cmd.ErrOrStderr()) }),
	)

	var failed int
	for _, path := range paths {
		bar.Describe(filepath.Base(path))
		doc, err := a.corpus.IngestFile(ctx, path, filepath.Base(path))
		_ = bar.Add(1)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "\n%s: %v (%s)\n", path, err, ragErrors.Reason(err))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		logger.Debug("indexed", "file", path, "chunks", doc.ChunkCount)
	}

	status, err := a.corpus.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d of %d files; corpus holds %d documents, %d chunks.\n",
		len(paths)-failed, len(paths), len(status.Documents), status.TotalChunks)
	if failed > 0 {
		return fmt.Errorf("%d files failed", failed)
	}
	return nil
}

// expandPatterns resolves each glob and returns the matching regular files once each, sorted.
func expandPatterns(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				paths = append(paths, m)
			}
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}
