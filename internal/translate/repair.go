package translate

import (
	"regexp"
	"sort"
	"strings"

	"subtrans/internal/language"
)

// frenchFixes are the sequences produced when UTF-8 French text is decoded
// as Windows-1252 somewhere upstream.
var frenchFixes = map[string]string{
	"Ã©": "é",
	"Ã¨": "è",
	"Ã ": "à",
	"Ã¢": "â",
	"Ãª": "ê",
	"Ã®": "î",
	"Ã´": "ô",
	"Ã¹": "ù",
	"Ã»": "û",
	"Ã§": "ç",
	"Ã«": "ë",
	"Ã¯": "ï",
	"Ã¶": "ö",
	"Ã¼": "ü",
	"Ã¦": "æ",
	"Å“": "œ",
	`Å"`: "œ",
	"Ã‰": "É",
	"Ã€": "À",
	"Â«": "«",
	"Â»": "»",
	"Â°": "°",
	"Â±": "±",
	"Â²": "²",
	"Â³": "³",
	"Â¼": "¼",
	"Â½": "½",
	"Â¾": "¾",
	"Â ": " ",
	"Â?": "?",
	"Â!": "!",
	"Â.": ".",
	"Â,": ",",

	"Ã\u00a0": "à",
	"Â\u00a0": "\u00a0",
}

// latinFixes covers the other Western European targets.
var latinFixes = map[string]string{
	"Ã¡": "á",
	"Ã©": "é",
	"Ã³": "ó",
	"Ãº": "ú",
	"Ã±": "ñ",
	"Ã£": "ã",
	"Ãµ": "õ",
	"Ã¤": "ä",
	"Ã¶": "ö",
	"Ã¼": "ü",
	"ÃŸ": "ß",
	"Ã§": "ç",
	"Ã¨": "è",
	"Ã¬": "ì",
	"Ã²": "ò",
	"Ã¹": "ù",
	"Ã¢": "â",
	"Ãª": "ê",
	"Ã´": "ô",
	"Ã‰": "É",
	"Ã€": "À",
	"Â¿": "¿",
	"Â¡": "¡",
	"Â«": "«",
	"Â»": "»",
	"Â°": "°",

	"Ã\u00ad": "í",
	"Â\u00a0": "\u00a0",
}

var defaultTables = map[string]map[string]string{
	"fr": frenchFixes,
	"es": latinFixes,
	"pt": latinFixes,
	"it": latinFixes,
	"de": latinFixes,
}

// strayCircumflex matches a leftover "Â" in front of punctuation.
var strayCircumflex = regexp.MustCompile(`Â[\s\x{00a0}]*([?!.,:;])`)

// Repairer rewrites known mojibake sequences per target language. The result
// is lossy: text that legitimately contains a listed sequence is changed too.
type Repairer struct {
	replacers map[string]*strings.Replacer
}

// NewRepairer builds a Repairer from the built-in tables plus overrides keyed
// by language code. Override pairs win over built-in pairs with the same key.
func NewRepairer(overrides map[string]map[string]string) *Repairer {
	merged := make(map[string]map[string]string, len(defaultTables))
	for lang, table := range defaultTables {
		merged[lang] = copyTable(table)
	}
	for lang, table := range overrides {
		base := language.Base(lang)
		if base == "" {
			continue
		}
		if merged[base] == nil {
			merged[base] = map[string]string{}
		}
		for from, to := range table {
			if from != "" {
				merged[base][from] = to
			}
		}
	}
	r := &Repairer{replacers: make(map[string]*strings.Replacer, len(merged))}
	for lang, table := range merged {
		r.replacers[lang] = buildReplacer(table)
	}
	return r
}

// Supports reports whether a table exists for the language.
func (r *Repairer) Supports(lang string) bool {
	if r == nil {
		return false
	}
	_, ok := r.replacers[language.Base(lang)]
	return ok
}

// Repair strips stray circumflexes before punctuation, then applies the table
// for lang. Languages without a table are returned unchanged.
func (r *Repairer) Repair(lang, text string) string {
	if r == nil || text == "" {
		return text
	}
	replacer, ok := r.replacers[language.Base(lang)]
	if !ok {
		return text
	}
	return replacer.Replace(strayCircumflex.ReplaceAllString(text, "$1"))
}

func copyTable(table map[string]string) map[string]string {
	out := make(map[string]string, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// buildReplacer orders pairs longest first so overlapping keys resolve to the
// longest match; strings.Replacer honours argument order at equal positions.
func buildReplacer(table map[string]string) *strings.Replacer {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, table[k])
	}
	return strings.NewReplacer(pairs...)
}
