package refine

import (
	"fmt"
	"strings"

	"github.com/MorganMind/penrose/internal/model"
)

// PromptVersion identifies the prompt set; recorded on runs and drift observations
const PromptVersion = "v1"

const systemPrompt = `You are an editor who revises writing in its author's own voice.
The author's word choices, rhythm and habits matter more than polish.
Never add facts, opinions or examples the author did not write.
Return only the revised text, with no preamble, quotes or commentary.`

var modeInstructions = map[model.Mode]string{
	model.ModeDevelopmental: `Revise the structure and flow of the text. You may reorder, merge or split paragraphs
and sharpen the argument, but keep every point the author makes and keep it sounding like them.`,
	model.ModeLine: `Improve the text sentence by sentence: clarity, rhythm and word choice.
Keep the paragraph structure and every idea in place.`,
	model.ModeCopy: `Correct grammar, spelling, punctuation and consistency only.
Do not rephrase sentences that are already correct.`,
}

// variation is one controlled stylistic leaning for a candidate
type variation struct {
	Name string
	Line string
}

// variationPairs are complementary leanings; each run uses one pair so its two
// candidates differ in a known direction
var variationPairs = [][2]variation{
	{
		{Name: "tighter", Line: "Lean toward tighter phrasing: trim filler, but keep the author's longer sentences where they carry rhythm."},
		{Name: "fuller", Line: "Lean toward keeping the author's fuller phrasing: smooth transitions, but cut nothing of substance."},
	},
	{
		{Name: "plainer", Line: "Lean toward plainer wording: prefer the author's simpler words where they already use them."},
		{Name: "cadence", Line: "Lean toward the author's cadence: preserve sentence openings and the length pattern of each paragraph."},
	},
	{
		{Name: "conservative", Line: "Lean conservative: change as little as the edit allows."},
		{Name: "assertive", Line: "Lean assertive: make each edit the mode allows, in the author's register."},
	},
}

// variationsFor returns the pair used for a variation seed
func variationsFor(seed int) [2]variation {
	if seed < 0 {
		seed = -seed
	}
	return variationPairs[seed%len(variationPairs)]
}

// instructionFor returns the base instruction for a mode
func instructionFor(mode model.Mode) string {
	if s, ok := modeInstructions[mode]; ok {
		return s
	}
	return modeInstructions[model.ModeLine]
}

// userPrompt assembles the instruction, the candidate's leaning and the text
func userPrompt(instruction string, v variation, text string) string {
	var b strings.Builder
	b.WriteString(instruction)
	if v.Line != "" {
		fmt.Fprintf(&b, "\n\n%s", v.Line)
	}
	b.WriteString("\n\nText:\n")
	b.WriteString(text)
	return b.String()
}
