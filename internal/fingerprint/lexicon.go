package fingerprint

// Word lists used by the extractor. All entries are lowercase and use a
// straight apostrophe; tokens are normalized the same way before lookup.

var stopwords = toSet([]string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "could", "did", "do", "does", "doing",
	"down", "during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just", "me",
	"more", "most", "my", "myself", "no", "nor", "not", "now", "of", "off",
	"on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over",
	"own", "same", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "very", "was", "we", "were",
	"what", "when", "where", "which", "while", "who", "whom", "why", "will", "with",
	"would", "you", "your", "yours", "yourself", "yourselves",
})

// functionWords feed the lexical signature; they carry habit rather than topic.
var functionWords = toSet([]string{
	"the", "a", "an", "and", "but", "or", "so", "of", "to", "in",
	"on", "at", "for", "with", "by", "from", "that", "this", "it", "is",
	"was", "be", "as", "not", "if", "i", "you", "we", "they", "my",
	"our", "just", "really", "very", "then", "there", "which", "what", "all", "some",
	"can", "will", "would", "could", "about", "like", "because", "when", "actually", "still",
})

// hedges are matched as token sequences.
var hedges = [][]string{
	{"maybe"}, {"perhaps"}, {"probably"}, {"possibly"}, {"arguably"},
	{"somewhat"}, {"seemingly"}, {"apparently"}, {"likely"}, {"might"},
	{"seems"}, {"seem"}, {"suppose"}, {"presumably"},
	{"i", "think"}, {"i", "guess"}, {"i", "believe"}, {"i", "suspect"},
	{"i", "don't", "think"}, {"i", "don't", "believe"}, {"i'm", "not", "sure"},
	{"sort", "of"}, {"kind", "of"}, {"more", "or", "less"},
	{"in", "my", "opinion"}, {"it", "seems"}, {"to", "some", "extent"},
}

var contractionSuffixes = []string{"n't", "'re", "'ve", "'ll", "'d", "'m"}

// Only these "'s" forms are contractions; the rest are possessives.
var contractedIs = toSet([]string{
	"it's", "that's", "there's", "what's", "he's", "she's", "who's",
	"here's", "let's", "where's", "how's", "everyone's", "nobody's",
})

var commonAdverbs = toSet([]string{
	"very", "quite", "really", "often", "always", "never", "almost", "rather",
	"soon", "still", "already", "again", "too", "sometimes", "seldom", "indeed",
	"perhaps", "maybe", "well", "fast", "hard", "later", "here", "there",
})

var lyNonAdverbs = toSet([]string{
	"only", "family", "early", "reply", "apply", "supply", "italy", "july", "holy",
	"ugly", "belly", "jelly", "bully", "rally", "tally", "ally", "fly", "lily",
	"silly", "friendly", "lonely", "lovely", "likely", "costly", "elderly", "orderly",
	"assembly", "anomaly", "monopoly", "butterfly", "dragonfly", "homily",
})

var commonAdjectives = toSet([]string{
	"good", "new", "first", "last", "long", "great", "little", "old", "big", "high",
	"different", "small", "large", "next", "early", "young", "important", "few", "public", "bad",
	"same", "able", "best", "better", "sure", "clear", "true", "whole", "real", "hard",
	"strong", "easy", "free", "full", "simple", "quick", "slow", "dark", "bright", "warm",
	"cold", "quiet", "loud", "deep", "wide", "short", "tall", "happy", "sad", "strange",
	"friendly", "lonely", "lovely", "silly", "ugly", "likely",
})

var adjectiveSuffixes = []string{"ous", "ful", "ive", "able", "ible", "less", "ish", "ical", "ic", "ary", "ent", "ant"}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func inSet(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}
