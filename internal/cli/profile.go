package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/profile"
	"github.com/MorganMind/penrose/internal/store"
)

var (
	sampleSource   string
	sampleDocument string
	sampleHTML     bool
	profileJSON    bool
)

// profileCmd represents the profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Build and inspect voice profiles",
	Long: `A voice profile is an author's accumulated stylistic fingerprint.
It is built from samples of their own writing and becomes active after
three samples; enforcement also requires enough total words.`,
}

var profileContributeCmd = &cobra.Command{
	Use:   "contribute <file>...",
	Short: "Add writing samples to the author's profile",
	Long: `Contribute folds each file into the author's profile. HTML files (or --html)
are reduced to their visible text first.

Example:
  penrose profile contribute posts/*.md --user alice --source published_post
  penrose profile contribute export.html --html --org acme`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProfileContribute,
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the profile used for the author",
	Long:  `Show resolves the org-scoped profile first and falls back to the author's global profile.`,
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileContributeCmd)
	profileCmd.AddCommand(profileShowCmd)

	profileContributeCmd.Flags().StringVar(&sampleSource, "source", string(model.SourceManualSample),
		"sample source (published_post, draft, imported, manual_sample)")
	profileContributeCmd.Flags().StringVar(&sampleDocument, "document", "", "document id (default: the file path)")
	profileContributeCmd.Flags().BoolVar(&sampleHTML, "html", false, "treat input as HTML (default: by extension)")

	profileShowCmd.Flags().BoolVar(&profileJSON, "json", false, "print the full profile as JSON")
}

func runProfileContribute(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	tenant, err := a.tenant("")
	if err != nil {
		return err
	}
	scope := model.ProfileScope{UserID: tenant.UserID, OrgID: tenant.OrgID}
	ctx := context.Background()

	var last *model.VoiceProfile
	failures := 0
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
			continue
		}

		documentID := sampleDocument
		if documentID == "" {
			documentID = path
		}
		ext := strings.ToLower(filepath.Ext(path))
		p, err := a.profiles.Contribute(ctx, scope, profile.Sample{
			Text:       string(data),
			HTML:       sampleHTML || ext == ".html" || ext == ".htm",
			SourceType: model.SourceType(sampleSource),
			DocumentID: documentID,
		})
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", path, err)
			continue
		}
		a.metrics.RecordContribution(p.Status)
		last = p
		fmt.Fprintf(os.Stderr, "✓ %s (profile now %d words, %d samples)\n", path, p.WordCount, p.SampleCount)
	}

	if last != nil {
		fmt.Fprintf(os.Stderr, "\n")
		printProfileSummary(last)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d samples failed", failures, len(args))
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	tenant, err := a.tenant("")
	if err != nil {
		return err
	}
	p, err := a.profiles.Lookup(context.Background(), tenant)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("no profile for user %s: %w", tenant.UserID, store.ErrNotFound)
	}

	if profileJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}
	printProfileSummary(p)
	return nil
}

func printProfileSummary(p *model.VoiceProfile) {
	scope := "global"
	if p.OrgID != "" {
		scope = "org " + p.OrgID
	}
	fp := p.Fingerprint
	fmt.Printf("Profile %s (user %s, %s)\n", p.ID, p.UserID, scope)
	fmt.Printf("  Status:        %s\n", p.Status)
	fmt.Printf("  Confidence:    %.2f (%s)\n", p.Confidence, p.Band)
	fmt.Printf("  Samples:       %d from %d documents, %d words\n", p.SampleCount, p.DistinctDocuments, p.WordCount)
	fmt.Printf("  Sentence:      %.1f words (±%.1f)\n", fp.SentenceLength.Mean, fp.SentenceLength.StdDev)
	fmt.Printf("  Contractions:  %.1f per 1k words\n", fp.ContractionPer1K)
	fmt.Printf("  Hedging:       %.1f per 1k words\n", fp.HedgingPer1K)
	fmt.Printf("  Readability:   %.1f\n", fp.Readability)
	if !p.LastSampleAt.IsZero() {
		fmt.Printf("  Last sample:   %s\n", p.LastSampleAt.Format("2006-01-02"))
	}
}
