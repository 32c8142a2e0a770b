package model

// Fingerprint is a fixed-shape linguistic feature vector extracted from a text sample.
// All rates are normalized (per word, per sentence or per 1,000 words) so that
// fingerprints of texts with different lengths stay comparable.
type Fingerprint struct {
	SentenceLength  LengthStats `json:"sentence_length"`  // Words per sentence
	ParagraphLength LengthStats `json:"paragraph_length"` // Words per paragraph

	Punctuation Punctuation `json:"punctuation"` // Marks per 1,000 words

	AdjectiveDensity   float64 `json:"adjective_density"`   // Adjectives per word
	AdverbDensity      float64 `json:"adverb_density"`      // Adverbs per word
	HedgingPer1K       float64 `json:"hedging_per_1k"`      // Hedging phrases per 1,000 words
	StopwordDensity    float64 `json:"stopword_density"`    // Stopwords per word
	ContractionPer1K   float64 `json:"contraction_per_1k"`  // Contractions per 1,000 words
	QuestionRatio      float64 `json:"question_ratio"`      // Share of sentences ending in '?'
	ExclamationRatio   float64 `json:"exclamation_ratio"`   // Share of sentences ending in '!'
	RepetitionIndex    float64 `json:"repetition_index"`    // Share of content tokens repeating an earlier one
	VocabularyRichness float64 `json:"vocabulary_richness"` // Moving-average type/token ratio
	AvgWordLength      float64 `json:"avg_word_length"`     // Letters per word
	Readability        float64 `json:"readability"`         // Flesch reading ease, 0-100
	Complexity         float64 `json:"complexity"`          // 0-1 structural complexity estimate

	LexicalSignature []SignatureEntry `json:"lexical_signature"` // Ranked function-word frequencies

	WordCount      int `json:"word_count"`
	SentenceCount  int `json:"sentence_count"`
	ParagraphCount int `json:"paragraph_count"`

	Confidence float64 `json:"confidence"` // Extraction confidence, low for short texts
}

// LengthStats holds mean/variance/stddev of a length distribution
type LengthStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdDev   float64 `json:"stddev"`
}

// SignatureEntry is one ranked word in a lexical signature
type SignatureEntry struct {
	Word      string  `json:"word"`
	Frequency float64 `json:"frequency"` // Occurrences per word
}

// Punctuation holds the 9 punctuation rates, each per 1,000 words
type Punctuation struct {
	Comma       float64 `json:"comma"`
	Period      float64 `json:"period"`
	Semicolon   float64 `json:"semicolon"`
	Colon       float64 `json:"colon"`
	Exclamation float64 `json:"exclamation"`
	Question    float64 `json:"question"`
	Dash        float64 `json:"dash"`
	Ellipsis    float64 `json:"ellipsis"`
	Parenthesis float64 `json:"parenthesis"`
}

// PunctuationDims is the dimensionality of the punctuation vector
const PunctuationDims = 9

// Vector returns the punctuation rates in a fixed order
func (p Punctuation) Vector() [PunctuationDims]float64 {
	return [PunctuationDims]float64{
		p.Comma, p.Period, p.Semicolon, p.Colon, p.Exclamation,
		p.Question, p.Dash, p.Ellipsis, p.Parenthesis,
	}
}

// PunctuationFromVector is the inverse of Punctuation.Vector
func PunctuationFromVector(v [PunctuationDims]float64) Punctuation {
	return Punctuation{
		Comma:       v[0],
		Period:      v[1],
		Semicolon:   v[2],
		Colon:       v[3],
		Exclamation: v[4],
		Question:    v[5],
		Dash:        v[6],
		Ellipsis:    v[7],
		Parenthesis: v[8],
	}
}
