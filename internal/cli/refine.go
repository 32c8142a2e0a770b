package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/refine"
)

var (
	refineMode     string
	refineDocument string
	refineJSON     bool
	refineTimeout  time.Duration
)

// refineCmd represents the refine command
var refineCmd = &cobra.Command{
	Use:   "refine <file>",
	Short: "Refine a text file in the author's voice",
	Long: `Refine generates two candidate edits, scores them against the author's
voice profile and prints the best one that stays faithful to the author.

When enforcement is active and the best candidate falls short, one corrective
round is generated. If nothing passes, the original text is printed unchanged.

Use "-" to read from stdin.

Example:
  penrose refine draft.md --user alice --mode line
  penrose refine chapter.txt --mode developmental --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

// tryAgainCmd represents the try-again command
var tryAgainCmd = &cobra.Command{
	Use:   "try-again <run-id>",
	Short: "Show a different suggestion for a previous run",
	Long: `Try again prefers an already generated passing candidate that has not been
shown yet. Only when none is left does it regenerate with the next variation.`,
	Args: cobra.ExactArgs(1),
	RunE: runTryAgain,
}

func init() {
	rootCmd.AddCommand(refineCmd)
	rootCmd.AddCommand(tryAgainCmd)

	refineCmd.Flags().StringVarP(&refineMode, "mode", "m", string(model.ModeLine), "editorial mode (developmental, line, copy)")
	refineCmd.Flags().StringVar(&refineDocument, "document", "", "document id (default: the file path)")
	refineCmd.Flags().BoolVar(&refineJSON, "json", false, "print the full result as JSON")
	refineCmd.Flags().DurationVar(&refineTimeout, "timeout", 3*time.Minute, "overall timeout")

	tryAgainCmd.Flags().BoolVar(&refineJSON, "json", false, "print the full result as JSON")
	tryAgainCmd.Flags().DurationVar(&refineTimeout, "timeout", 3*time.Minute, "overall timeout")
}

func runRefine(cmd *cobra.Command, args []string) error {
	path := args[0]
	text, err := readInput(path)
	if err != nil {
		return err
	}

	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	documentID := refineDocument
	if documentID == "" && path != "-" {
		documentID = path
	}
	tenant, err := a.tenant(documentID)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), refineTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Refining: %s (%s mode, user %s)\n", path, refineMode, tenant.UserID)
	}

	result, err := a.orch.Refine(ctx, refine.Request{
		Text:   text,
		Mode:   model.Mode(refineMode),
		Tenant: tenant,
	})
	if err != nil {
		return fmt.Errorf("refine: %w", err)
	}
	return printResult(result)
}

func runTryAgain(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), refineTimeout)
	defer cancel()

	result, err := a.orch.TryAgain(ctx, args[0])
	if err != nil {
		return fmt.Errorf("try again: %w", err)
	}
	return printResult(result)
}

// printResult writes the suggestion to stdout and a summary to stderr
func printResult(r *refine.Result) error {
	if refineJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Println(r.SuggestedText)

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Run:          %s (attempt %d)\n", r.RunID, r.Attempt)
	fmt.Fprintf(os.Stderr, "  Enforcement:  %s", r.EnforcementOutcome)
	if !r.EnforcementActive {
		fmt.Fprintf(os.Stderr, " (inactive: profile missing or still building)")
	}
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Initial:      %s\n", r.EnforcementClass)
	if r.RetryTriggered {
		fmt.Fprintf(os.Stderr, "  Retry:        corrective round ran (%d candidates)\n", len(r.Candidates))
	}
	if r.Reused {
		fmt.Fprintf(os.Stderr, "  Reused:       candidate %d, no new generation\n", r.SelectedIndex)
	}
	if r.ReturnedOriginal {
		fmt.Fprintf(os.Stderr, "  ⚠️  No candidate preserved the author's voice; original returned\n")
	} else if len(r.Candidates) > r.SelectedIndex {
		s := r.Candidates[r.SelectedIndex].Scores
		fmt.Fprintf(os.Stderr, "  Scores:       semantic %.2f  stylistic %.2f  scope %.2f  combined %.2f\n",
			s.Semantic, s.Stylistic, s.Scope, s.Combined)
	}
	return nil
}

// readInput reads a file, or stdin for "-"
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
