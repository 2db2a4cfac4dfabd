package language

import "unicode"

// Detector classifies the language of transcript text. Implementations are
// pure and never fail; when nothing matches they return the baseline.
type Detector interface {
	Detect(text string) string
}

// DefaultLanguage is returned when no script signal is found.
const DefaultLanguage = "en"

// RangeDetector scores characters against per-language Unicode ranges and
// diacritic sets. The highest-scoring language wins; ties and zero scores
// fall back to the baseline.
type RangeDetector struct{}

func NewRangeDetector() *RangeDetector { return &RangeDetector{} }

type scorer struct {
	code  string
	match func(r rune) bool
}

var scorers = []scorer{
	{"hi", func(r rune) bool { return unicode.Is(unicode.Devanagari, r) }},
	{"ar", func(r rune) bool { return unicode.Is(unicode.Arabic, r) }},
	{"ru", func(r rune) bool { return unicode.Is(unicode.Cyrillic, r) }},
	{"ko", func(r rune) bool { return unicode.Is(unicode.Hangul, r) }},
	{"ja", func(r rune) bool { return unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) }},
	{"zh", func(r rune) bool { return unicode.Is(unicode.Han, r) }},
	{"es", runeSet("áéíóúñ¿¡ÁÉÍÓÚÑ")},
	{"fr", runeSet("àâçèêëîïôùûœÀÂÇÈÊËÎÏÔÙÛŒ")},
	{"de", runeSet("äöüßÄÖÜ")},
	{"pt", runeSet("ãõâêôçÃÕÂÊÔÇ")},
}

func runeSet(chars string) func(rune) bool {
	set := make(map[rune]struct{}, len(chars))
	for _, r := range chars {
		set[r] = struct{}{}
	}
	return func(r rune) bool {
		_, ok := set[r]
		return ok
	}
}

// Detect returns the language code with the highest character count.
func (d *RangeDetector) Detect(text string) string {
	counts := make(map[string]int, len(scorers))
	for _, r := range text {
		for _, s := range scorers {
			if s.match(r) {
				counts[s.code]++
				break
			}
		}
	}

	best, bestCount := DefaultLanguage, 0
	for _, s := range scorers {
		if c := counts[s.code]; c > bestCount {
			best, bestCount = s.code, c
		}
	}
	return best
}
