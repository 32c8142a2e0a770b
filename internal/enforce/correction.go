package enforce

import (
	"fmt"
	"strings"

	"github.com/MorganMind/penrose/internal/model"
)

// Strategy is the corrective generation strategy for a failing class
type Strategy string

const (
	StrategyTightenStyle    Strategy = "tighten_style"    // Append concrete voice constraints
	StrategyMinimalChange   Strategy = "minimal_change"   // Replace the instruction outright
	StrategyPreserveMeaning Strategy = "preserve_meaning" // Append meaning-preservation constraints
)

// Strategies maps each non-passing class to its corrective strategy
var Strategies = map[model.EnforcementClass]Strategy{
	model.ClassSoftWarning: StrategyTightenStyle,
	model.ClassFailure:     StrategyMinimalChange,
	model.ClassDrift:       StrategyPreserveMeaning,
}

// MinimalChangeInstruction replaces the whole instruction after a failure
const MinimalChangeInstruction = `Make at most one minimal change to the text: fix a single clear error or awkward phrase.
Do not rephrase, reorder, expand or shorten anything else.
Keep every word, contraction and punctuation mark the author chose unless it is the one change.
If nothing needs changing, return the text exactly as given.
Return only the revised text.`

const preserveMeaningConstraints = `Meaning preservation is mandatory:
- Keep every claim, fact, name, number and qualifier from the original.
- Do not add new ideas, examples or conclusions.
- Do not remove any point the author makes, even to tighten.
- Keep the author's stance and level of certainty exactly as written.`

// Correction is the instruction to use for the single retry round
type Correction struct {
	Trigger     model.EnforcementClass `json:"trigger"`
	Strategy    Strategy               `json:"strategy"`
	Instruction string                 `json:"instruction"`
}

// Correct builds the retry instruction for a failing class from the base instruction
// and the stylistic target. It returns false for a passing class.
func Correct(class model.EnforcementClass, base string, target model.Fingerprint) (Correction, bool) {
	strategy, ok := Strategies[class]
	if !ok {
		return Correction{}, false
	}

	c := Correction{Trigger: class, Strategy: strategy}
	switch strategy {
	case StrategyTightenStyle:
		c.Instruction = base + "\n\n" + StyleConstraints(target)
	case StrategyMinimalChange:
		c.Instruction = MinimalChangeInstruction
	case StrategyPreserveMeaning:
		c.Instruction = base + "\n\n" + preserveMeaningConstraints
	}
	return c, true
}

// StyleConstraints renders a fingerprint's key habits as concrete generation constraints
func StyleConstraints(fp model.Fingerprint) string {
	var b strings.Builder
	b.WriteString("Match the author's voice precisely:\n")

	if fp.SentenceLength.Mean > 0 {
		fmt.Fprintf(&b, "- Keep the average sentence near %.0f words (typical spread ±%.0f).\n",
			fp.SentenceLength.Mean, fp.SentenceLength.StdDev)
	}

	if fp.ContractionPer1K >= 10 {
		fmt.Fprintf(&b, "- Use contractions as the author does, about %.0f per 1,000 words; never expand them.\n", fp.ContractionPer1K)
	} else {
		b.WriteString("- Avoid contractions; the author rarely uses them.\n")
	}

	if fp.HedgingPer1K >= 5 {
		fmt.Fprintf(&b, "- Keep the author's hedging, about %.0f hedges per 1,000 words; do not make claims more certain.\n", fp.HedgingPer1K)
	} else {
		b.WriteString("- Do not add hedges such as maybe, perhaps or I think.\n")
	}

	p := fp.Punctuation
	fmt.Fprintf(&b, "- Match the punctuation habits: about %.0f commas, %.0f dashes and %.0f semicolons per 1,000 words.\n",
		p.Comma, p.Dash, p.Semicolon)
	if fp.QuestionRatio > 0.1 {
		b.WriteString("- Keep rhetorical questions; the author uses them often.\n")
	}
	if p.Exclamation < 1 {
		b.WriteString("- Do not add exclamation marks.\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
