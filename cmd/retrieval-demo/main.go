// Command retrieval-demo indexes a directory of source files and runs a
// single hybrid search against them, illustrating the public
// pkg/retrieval facade end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aman-labs/coderetrieval/internal/config"
	"github.com/aman-labs/coderetrieval/internal/orchestrator"
	"github.com/aman-labs/coderetrieval/pkg/retrieval"
	"github.com/aman-labs/coderetrieval/pkg/version"
)

func main() {
	dir := flag.String("dir", ".", "directory to index")
	query := flag.String("query", "", "search query to run after indexing")
	limit := flag.Int("limit", 10, "maximum number of results")
	transitive := flag.Bool("transitive", false, "resolve implements:/extends:/usages: queries via graph closure")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(*dir, *query, *limit, *transitive); err != nil {
		slog.Error("retrieval-demo failed", "error", err)
		os.Exit(1)
	}
}

func run(dir, query string, limit int, transitive bool) error {
	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	svc, err := retrieval.New(cfg, retrieval.Options{})
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer svc.Close()

	ctx := context.Background()
	indexed, err := indexDirectory(ctx, svc, dir)
	if err != nil {
		return fmt.Errorf("index %s: %w", dir, err)
	}
	fmt.Printf("indexed %d chunks from %s\n", indexed, dir)

	if query == "" {
		return nil
	}

	resp, err := svc.Search(ctx, orchestrator.Request{
		Query:      query,
		Limit:      limit,
		Mode:       orchestrator.ModeHybrid,
		Transitive: transitive,
	})
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	fmt.Printf("%d results for %q:\n", resp.Total, query)
	for _, r := range resp.Results {
		name := ""
		if r.KeywordDoc != nil {
			name = r.KeywordDoc.EntityName
		}
		fmt.Printf("  %.4f  %s  %s\n", r.CombinedScore, r.ChunkID, name)
	}
	return nil
}

func indexDirectory(ctx context.Context, svc *retrieval.Service, dir string) (int, error) {
	total := 0
	supported := map[string]struct{}{
		".go": {}, ".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {},
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supported[filepath.Ext(path)]; !ok {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		chunks, err := svc.IndexFile(ctx, path, content)
		if err != nil {
			return err
		}
		total += len(chunks)
		return nil
	})
	return total, err
}
