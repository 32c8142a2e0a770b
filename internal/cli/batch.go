package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/refine"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
	batchMode    string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Refine many files in parallel",
	Long: `Batch refines many files concurrently:
- A directory is walked for .txt, .md and .markdown files
- Any other file is read as a list of paths (one per line, # for comments)
- Each file is refined as its own document
- Suggestions are written next to each other in the output directory

Example:
  penrose batch ./chapters --user alice
  penrose batch drafts.txt --concurrency 8 --output-dir ./refined --mode copy`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers or NumCPU)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./penrose-refined", "output directory for suggestions")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVarP(&batchMode, "mode", "m", string(model.ModeLine), "editorial mode (developmental, line, copy)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	paths, err := batchPaths(input)
	if err != nil {
		return err
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	tenant, err := a.tenant("")
	if err != nil {
		return err
	}

	workers := concurrency
	if workers <= 0 {
		workers = a.cfg.Concurrency.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Penrose Batch Refinement\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s (%d files)\n", input, len(paths))
	fmt.Fprintf(os.Stderr, "  Author:       %s\n", tenant.UserID)
	fmt.Fprintf(os.Stderr, "  Mode:         %s\n", batchMode)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := refine.NewBatchRefiner(a.orch, workers)
	results := processor.ProcessFiles(ctx, paths, model.Mode(batchMode), tenant)

	successCount := 0
	failureCount := 0
	originalCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Path, result.Error)
			continue
		}

		outPath := filepath.Join(outputDir, outputName(result.Path))
		if err := os.WriteFile(outPath, []byte(result.Result.SuggestedText+"\n"), 0644); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write suggestion: %v\n", result.Path, err)
			continue
		}

		successCount++
		if result.Result.ReturnedOriginal {
			originalCount++
		}
		fmt.Fprintf(os.Stderr, "✓ %s (%s, run %s)\n", result.Path, result.Result.EnforcementOutcome, result.Result.RunID)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d files\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d (%d kept original)\n", successCount, originalCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// batchPaths lists a directory, or reads a list file
func batchPaths(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", input, err)
	}
	if info.IsDir() {
		return refine.ListFiles(input)
	}
	return refine.ReadPathsFromFile(input)
}

// outputName derives a flat, unique-enough file name from a source path
func outputName(path string) string {
	clean := filepath.Clean(path)
	clean = strings.TrimPrefix(clean, string(filepath.Separator))

	// Replace problematic characters
	replacer := strings.NewReplacer(
		string(filepath.Separator), "_",
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	name := replacer.Replace(clean)

	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".refined" + ext
}
