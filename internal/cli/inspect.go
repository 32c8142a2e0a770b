package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MorganMind/penrose/internal/fingerprint"
)

var (
	fingerprintHTML bool
	driftLimit      int
	driftJSON       bool
)

// fingerprintCmd represents the fingerprint command
var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <file>",
	Short: "Print the stylistic fingerprint of a text",
	Long: `Fingerprint extracts the deterministic stylistic features of a text
(sentence and paragraph lengths, punctuation, hedging, contractions,
readability, lexical signature) and prints them as JSON.

No profile, model or database is involved.`,
	Args: cobra.ExactArgs(1),
	RunE: runFingerprint,
}

// driftCmd represents the drift command
var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "List voice drift alerts for the author",
	Long: `Drift alerts are raised when recent suggestions for an author score
noticeably lower, or much less consistently, on voice than earlier ones.
They are advisory and never change a refinement's outcome.`,
	Args: cobra.NoArgs,
	RunE: runDrift,
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(driftCmd)

	fingerprintCmd.Flags().BoolVar(&fingerprintHTML, "html", false, "treat input as HTML (default: by extension)")

	driftCmd.Flags().IntVar(&driftLimit, "limit", 20, "maximum number of alerts")
	driftCmd.Flags().BoolVar(&driftJSON, "json", false, "print alerts as JSON")
}

func runFingerprint(cmd *cobra.Command, args []string) error {
	path := args[0]
	text, err := readInput(path)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if fingerprintHTML || ext == ".html" || ext == ".htm" {
		text, err = fingerprint.PlainText(text)
		if err != nil {
			return fmt.Errorf("extract text: %w", err)
		}
	}

	fp := fingerprint.Extract(text)
	if !fingerprint.IsReliable(fp) {
		fmt.Fprintf(os.Stderr, "⚠️  Only %d words; features are unreliable on short texts\n", fp.WordCount)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(fp)
}

func runDrift(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.close()

	tenant, err := a.tenant("")
	if err != nil {
		return err
	}
	alerts, err := a.store.ListDriftAlerts(context.Background(), tenant.UserID, driftLimit)
	if err != nil {
		return err
	}

	if driftJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(alerts)
	}

	if len(alerts) == 0 {
		fmt.Fprintf(os.Stderr, "✓ No drift alerts for %s\n", tenant.UserID)
		return nil
	}
	for _, al := range alerts {
		fmt.Printf("%s  %-16s recent %.3f vs older %.3f  (var %.4f vs %.4f, n=%d)  %s/%s\n",
			al.CreatedAt.Format("2006-01-02 15:04"), al.Kind,
			al.RecentMean, al.OlderMean, al.RecentVariance, al.OlderVariance, al.Samples,
			al.Model, al.PromptVersion)
	}
	return nil
}
