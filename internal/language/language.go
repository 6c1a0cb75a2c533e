package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type entry struct {
	code2   string // ISO 639-1
	code3   string // ISO 639-2/T, what ffmpeg writes into Matroska
	alt3    string // ISO 639-2/B alias seen in older files
	display string
}

var languages = []entry{
	{"en", "eng", "", "English"},
	{"fr", "fra", "fre", "French"},
	{"es", "spa", "", "Spanish"},
	{"de", "deu", "ger", "German"},
	{"it", "ita", "", "Italian"},
	{"pt", "por", "", "Portuguese"},
	{"nl", "nld", "dut", "Dutch"},
	{"ja", "jpn", "", "Japanese"},
	{"ko", "kor", "", "Korean"},
	{"zh", "zho", "chi", "Chinese"},
	{"ru", "rus", "", "Russian"},
	{"ar", "ara", "", "Arabic"},
	{"pl", "pol", "", "Polish"},
	{"sv", "swe", "", "Swedish"},
}

var byCode = func() map[string]*entry {
	index := make(map[string]*entry, len(languages)*3)
	for i := range languages {
		e := &languages[i]
		index[e.code2] = e
		index[e.code3] = e
		if e.alt3 != "" {
			index[e.alt3] = e
		}
	}
	return index
}()

func lookup(code string) *entry {
	return byCode[Base(code)]
}

// Base strips region and script subtags: "pt-BR" -> "pt", "FRA" -> "fra".
func Base(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	code = strings.ReplaceAll(code, "_", "-")
	if idx := strings.IndexByte(code, '-'); idx > 0 {
		code = code[:idx]
	}
	return code
}

// ToISO3 converts a language code to the three-letter form used in stream
// metadata. Unknown input yields "und".
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	base := Base(code)
	if base == "" {
		return "und"
	}
	tag, err := xlanguage.Parse(base)
	if err != nil {
		return "und"
	}
	b, confidence := tag.Base()
	if confidence == xlanguage.No {
		return "und"
	}
	return b.ISO3()
}

// ToISO2 converts a language code to its two-letter form, or "" when no such
// form exists.
func ToISO2(code string) string {
	if e := lookup(code); e != nil {
		return e.code2
	}
	base := Base(code)
	if base == "" {
		return ""
	}
	tag, err := xlanguage.Parse(base)
	if err != nil {
		return ""
	}
	b, _ := tag.Base()
	if s := b.String(); len(s) == 2 {
		return s
	}
	return ""
}

// DisplayName returns an English name for the language, "Unknown" for empty
// input, or the upper-cased code when nothing matches.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if e := lookup(trimmed); e != nil {
		return e.display
	}
	if tag, err := xlanguage.Parse(strings.ReplaceAll(trimmed, "_", "-")); err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

// FromTags extracts the language from ffprobe stream tags.
func FromTags(tags map[string]string) string {
	for _, key := range []string{"language", "LANGUAGE", "Language", "lang"} {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\u0000", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}
