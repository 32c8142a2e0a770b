package fingerprint

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/MorganMind/penrose/internal/model"
)

const (
	// ReliableWords is the word count below which a fingerprint is considered unreliable
	ReliableWords = 50

	// SignatureSize is the number of ranked function words kept in a lexical signature
	SignatureSize = 10

	confidenceHalfWords = 200.0
	mergeFragmentChars  = 15
	mattrWindow         = 50
)

var (
	wordPattern      = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)*`)
	blankLinePattern = regexp.MustCompile(`\n[ \t\r]*\n`)
	dashPattern      = regexp.MustCompile(`[—–]|--| - `)
	ellipsisPattern  = regexp.MustCompile(`\.{3,}|…`)
)

// Extract computes the linguistic fingerprint of a text. It is pure and deterministic:
// the same input always yields an identical fingerprint.
func Extract(text string) model.Fingerprint {
	text = normalize(text)
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return model.Fingerprint{}
	}

	var (
		sentences      []string
		paragraphWords []float64
		words          []string
	)
	for _, p := range paragraphs {
		pw := tokenize(p)
		if len(pw) == 0 {
			continue
		}
		paragraphWords = append(paragraphWords, float64(len(pw)))
		words = append(words, pw...)
		sentences = append(sentences, splitSentences(p)...)
	}
	if len(words) == 0 {
		return model.Fingerprint{}
	}

	sentenceWords := make([]float64, 0, len(sentences))
	questions, exclamations := 0, 0
	for _, s := range sentences {
		sentenceWords = append(sentenceWords, float64(len(tokenize(s))))
		switch terminal(s) {
		case '?':
			questions++
		case '!':
			exclamations++
		}
	}

	n := float64(len(words))
	per1K := 1000.0 / n
	sentenceCount := len(sentences)

	fp := model.Fingerprint{
		SentenceLength:   describe(sentenceWords),
		ParagraphLength:  describe(paragraphWords),
		Punctuation:      countPunctuation(text, per1K),
		HedgingPer1K:     float64(countHedges(words)) * per1K,
		ContractionPer1K: float64(countContractions(words)) * per1K,
		RepetitionIndex:  repetitionIndex(words),
		LexicalSignature: signature(words),
		WordCount:        len(words),
		SentenceCount:    sentenceCount,
		ParagraphCount:   len(paragraphWords),
		Confidence:       extractionConfidence(len(words)),
	}

	var adjectives, adverbs, stops, letters, syllables, polysyllabic int
	for _, w := range words {
		if isAdjective(w) {
			adjectives++
		}
		if isAdverb(w) {
			adverbs++
		}
		if inSet(stopwords, w) {
			stops++
		}
		letters += letterCount(w)
		syl := countSyllables(w)
		syllables += syl
		if syl >= 3 {
			polysyllabic++
		}
	}
	fp.AdjectiveDensity = float64(adjectives) / n
	fp.AdverbDensity = float64(adverbs) / n
	fp.StopwordDensity = float64(stops) / n
	fp.AvgWordLength = float64(letters) / n
	fp.VocabularyRichness = mattr(words, mattrWindow)

	if sentenceCount > 0 {
		fp.QuestionRatio = float64(questions) / float64(sentenceCount)
		fp.ExclamationRatio = float64(exclamations) / float64(sentenceCount)
	}

	wordsPerSentence := n / math.Max(float64(sentenceCount), 1)
	fp.Readability = clamp(206.835-1.015*wordsPerSentence-84.6*(float64(syllables)/n), 0, 100)
	fp.Complexity = clamp(0.5*math.Min(wordsPerSentence/30, 1)+0.5*math.Min(float64(polysyllabic)/n/0.25, 1), 0, 1)

	return fp
}

// IsReliable reports whether the fingerprint was extracted from enough text to trust
func IsReliable(fp model.Fingerprint) bool {
	return fp.WordCount >= ReliableWords
}

func extractionConfidence(words int) float64 {
	if words <= 0 {
		return 0
	}
	c := 1 - math.Pow(2, -float64(words)/confidenceHalfWords)
	if words < ReliableWords {
		c *= float64(words) / ReliableWords
	}
	return c
}

func normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "’", "'")
	text = strings.ReplaceAll(text, "‘", "'")
	return strings.TrimSpace(text)
}

func splitParagraphs(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, p := range blankLinePattern.Split(text, -1) {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitSentences breaks a paragraph after terminal punctuation followed by whitespace.
// Runs of terminals and closing quotes or brackets stay attached to their sentence.
func splitSentences(paragraph string) []string {
	runes := []rune(paragraph)
	var raw []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		j := i + 1
		for j < len(runes) && (isTerminal(runes[j]) || isCloser(runes[j])) {
			j++
		}
		if j == len(runes) || unicode.IsSpace(runes[j]) {
			if s := strings.TrimSpace(string(runes[start:j])); s != "" {
				raw = append(raw, s)
			}
			start = j
			i = j - 1
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		raw = append(raw, tail)
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if len(out) > 0 && len([]rune(s)) < mergeFragmentChars && terminal(s) == 0 {
			out[len(out)-1] += " " + s
			continue
		}
		out = append(out, s)
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '»':
		return true
	}
	return false
}

// terminal returns the last terminal mark of a sentence, ignoring closers, or 0
func terminal(s string) rune {
	runes := []rune(s)
	for i := len(runes) - 1; i >= 0; i-- {
		switch {
		case isCloser(runes[i]):
			continue
		case isTerminal(runes[i]):
			return runes[i]
		default:
			return 0
		}
	}
	return 0
}

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

func countPunctuation(text string, per1K float64) model.Punctuation {
	ellipses := len(ellipsisPattern.FindAllString(text, -1))
	dashes := len(dashPattern.FindAllString(text, -1))
	withoutEllipses := ellipsisPattern.ReplaceAllString(text, "")

	var p model.Punctuation
	for _, r := range withoutEllipses {
		switch r {
		case ',':
			p.Comma++
		case '.':
			p.Period++
		case ';':
			p.Semicolon++
		case ':':
			p.Colon++
		case '!':
			p.Exclamation++
		case '?':
			p.Question++
		case '(':
			p.Parenthesis++
		}
	}
	p.Dash = float64(dashes)
	p.Ellipsis = float64(ellipses)

	v := p.Vector()
	for i := range v {
		v[i] *= per1K
	}
	return model.PunctuationFromVector(v)
}

func countHedges(words []string) int {
	count := 0
	for i := range words {
		for _, h := range hedges {
			if matchAt(words, i, h) {
				count++
			}
		}
	}
	return count
}

func matchAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for k, p := range phrase {
		if words[i+k] != p {
			return false
		}
	}
	return true
}

func countContractions(words []string) int {
	count := 0
	for _, w := range words {
		if isContraction(w) {
			count++
		}
	}
	return count
}

func isContraction(w string) bool {
	if !strings.Contains(w, "'") {
		return false
	}
	if inSet(contractedIs, w) {
		return true
	}
	for _, suffix := range contractionSuffixes {
		if strings.HasSuffix(w, suffix) {
			return true
		}
	}
	return false
}

func isAdverb(w string) bool {
	if inSet(commonAdverbs, w) {
		return true
	}
	return len(w) >= 5 && strings.HasSuffix(w, "ly") && !inSet(lyNonAdverbs, w)
}

func isAdjective(w string) bool {
	if inSet(commonAdjectives, w) {
		return true
	}
	if len(w) < 6 || inSet(stopwords, w) || strings.Contains(w, "'") {
		return false
	}
	for _, suffix := range adjectiveSuffixes {
		if strings.HasSuffix(w, suffix) {
			return true
		}
	}
	return false
}

func repetitionIndex(words []string) float64 {
	seen := make(map[string]struct{})
	content, repeats := 0, 0
	for _, w := range words {
		if len(w) < 3 || inSet(stopwords, w) {
			continue
		}
		content++
		if _, ok := seen[w]; ok {
			repeats++
			continue
		}
		seen[w] = struct{}{}
	}
	if content == 0 {
		return 0
	}
	return float64(repeats) / float64(content)
}

// mattr is the moving-average type/token ratio over a fixed window.
// Texts shorter than the window fall back to a plain type/token ratio.
func mattr(words []string, window int) float64 {
	if len(words) == 0 {
		return 0
	}
	if len(words) <= window {
		return float64(len(distinct(words))) / float64(len(words))
	}

	counts := make(map[string]int)
	for _, w := range words[:window] {
		counts[w]++
	}
	sum := float64(len(counts)) / float64(window)
	windows := 1
	for i := window; i < len(words); i++ {
		out := words[i-window]
		counts[out]--
		if counts[out] == 0 {
			delete(counts, out)
		}
		counts[words[i]]++
		sum += float64(len(counts)) / float64(window)
		windows++
	}
	return sum / float64(windows)
}

func distinct(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func signature(words []string) []model.SignatureEntry {
	counts := make(map[string]int)
	for _, w := range words {
		if inSet(functionWords, w) {
			counts[w]++
		}
	}
	entries := make([]model.SignatureEntry, 0, len(counts))
	for w, c := range counts {
		entries = append(entries, model.SignatureEntry{Word: w, Frequency: float64(c) / float64(len(words))})
	}
	return rankSignature(entries, SignatureSize)
}

// rankSignature orders entries by frequency (ties alphabetical) and keeps the top n
func rankSignature(entries []model.SignatureEntry, n int) []model.SignatureEntry {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Frequency != entries[j].Frequency {
			return entries[i].Frequency > entries[j].Frequency
		}
		return entries[i].Word < entries[j].Word
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func letterCount(w string) int {
	n := 0
	for _, r := range w {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// countSyllables estimates syllables as vowel groups, discounting a silent trailing e
func countSyllables(w string) int {
	w = strings.ReplaceAll(w, "'", "")
	count := 0
	prevVowel := false
	for _, r := range w {
		v := strings.ContainsRune("aeiouy", r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if count > 1 && strings.HasSuffix(w, "e") && !strings.HasSuffix(w, "le") {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}
