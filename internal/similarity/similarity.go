// Package similarity scores how likely two product names refer to the
// same item. Model-number agreement is the strongest identity signal,
// stronger than free-text similarity, so it carries the largest weight
// and guarantees score floors.
package similarity

import (
	"regexp"
	"strings"
)

// Weights of the sub-scores. They sum to 1.0.
const (
	weightBrand     = 0.30
	weightModel     = 0.40
	weightColor     = 0.10
	weightSeries    = 0.15
	weightImportant = 0.05
)

// filterWords are technical/marketing filler terms that cause false
// matches between unrelated products and are excluded from token
// comparison.
var filterWords = map[string]struct{}{
	"ips": {}, "intel": {}, "core": {}, "amd": {}, "ryzen": {}, "nvidia": {},
	"geforce": {}, "ram": {}, "gb": {}, "tb": {}, "ssd": {}, "hdd": {},
	"wifi": {}, "bluetooth": {}, "usb": {}, "hdmi": {}, "vga": {}, "dvi": {},
	"displayport": {}, "garantili": {}, "ithalatçı": {}, "ithalatci": {},
	"garanti": {}, "yeni": {}, "orijinal": {}, "faturalı": {}, "faturasız": {},
	"kutusunda": {}, "kutusuz": {}, "açık": {}, "kapalı": {},
	"the": {}, "and": {}, "or": {}, "for": {}, "with": {}, "ve": {}, "ile": {},
	"veya": {}, "için": {}, "akıllı": {}, "smart": {}, "otomatik": {},
	"automatic": {}, "yüksek": {}, "high": {}, "düşük": {}, "low": {},
	"güçlü": {}, "powerful": {}, "hızlı": {}, "fast": {}, "yavaş": {}, "slow": {},
}

var colorWords = map[string]struct{}{
	"beyaz": {}, "white": {}, "siyah": {}, "black": {}, "kırmızı": {}, "red": {},
	"mavi": {}, "blue": {}, "yeşil": {}, "green": {}, "sarı": {}, "yellow": {},
	"gri": {}, "gray": {}, "grey": {}, "pembe": {}, "pink": {}, "mor": {},
	"purple": {}, "turuncu": {}, "orange": {}, "kahverengi": {}, "brown": {},
	"altın": {}, "gold": {}, "gümüş": {}, "silver": {}, "platin": {}, "platinum": {},
}

// Model-code shapes: dotted/dashed part numbers (NX.J23EY.001,
// AL16-52P-55S2), letter-digit-letter mixes (G7X), and long
// letters+digits runs (HBC000005ELGI).
var modelPattern = regexp.MustCompile(`(?i)\b([A-Z0-9]+[.-][A-Z0-9]+[.-]?[A-Z0-9]*|[A-Z][0-9]+[A-Z]+[0-9]*|[A-Z]{2,}[0-9]+[A-Z0-9-]*)\b`)

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]`)
var whitespace = regexp.MustCompile(`\s+`)

// Score compares a searched product name against an extracted page
// title and returns a value in [0,1].
func Score(name, title string) float64 {
	if name == "" || title == "" {
		return 0.0
	}

	norm1 := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), " ")
	norm2 := whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), " ")
	if norm1 == norm2 {
		return 1.0
	}

	words1 := strings.Fields(norm1)
	words2 := strings.Fields(norm2)

	important1 := importantWords(words1)
	important2 := importantWords(words2)
	if len(important1) == 0 || len(important2) == 0 {
		important1 = toSet(words1)
		important2 = toSet(words2)
	}

	brandScore := brandMatch(words1, words2)
	modelScore, modelMatched := modelMatch(name, title)
	colorScore := colorMatch(important1, important2)

	series1 := strings.Join(words1[:min(4, len(words1))], " ")
	series2 := strings.Join(words2[:min(4, len(words2))], " ")
	seriesScore := Ratio(series1, series2)

	common := 0
	for w := range important1 {
		if _, ok := important2[w]; ok {
			common++
		}
	}
	importantRatio := 0.0
	if m := max(len(important1), len(important2)); m > 0 {
		importantRatio = float64(common) / float64(m)
	}

	score := brandScore*weightBrand +
		modelScore*weightModel +
		colorScore*weightColor +
		seriesScore*weightSeries +
		importantRatio*weightImportant

	// Model agreement floors: a matched model code is near-proof of
	// identity even when the rest of the text diverges.
	if modelMatched {
		score = max(score, 0.5)
		if brandScore > 0.8 {
			score = max(score, 0.7)
		}
	}

	return max(0.0, min(1.0, score))
}

func importantWords(words []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range words {
		if _, filtered := filterWords[w]; filtered {
			continue
		}
		if len([]rune(w)) < 2 {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func brandMatch(words1, words2 []string) float64 {
	if len(words1) == 0 || len(words2) == 0 {
		return 0.0
	}
	brand1, brand2 := words1[0], words2[0]
	if brand1 == brand2 {
		return 1.0
	}
	if r := Ratio(brand1, brand2); r > 0.8 {
		return r
	}
	return 0.0
}

// modelMatch extracts model codes from both raw strings and scores the
// overlap: full set match scores highest, a substring overlap of at
// least 60% length counts as partial, and model codes present on one
// side only are penalized.
func modelMatch(text1, text2 string) (score float64, matched bool) {
	set1 := extractModels(text1)
	set2 := extractModels(text2)

	commonCount := 0
	missingCount := 0
	for m := range set1 {
		if _, ok := set2[m]; ok {
			commonCount++
		} else {
			missingCount++
		}
	}

	partialScore := 0.0
	if len(set1) > 0 && len(set2) > 0 {
		for m1 := range set1 {
			for m2 := range set2 {
				if !strings.Contains(m2, m1) && !strings.Contains(m1, m2) {
					continue
				}
				shorter := min(len(m1), len(m2))
				longer := max(len(m1), len(m2))
				if longer == 0 {
					continue
				}
				if r := float64(shorter) / float64(longer); r >= 0.6 {
					partialScore = max(partialScore, r)
				}
			}
		}
	}

	switch {
	case commonCount > 0:
		score = 0.5 + float64(commonCount)*0.2
		if missingCount == 0 {
			score = 1.0
		}
		return min(score, 1.0), true
	case partialScore > 0:
		return 0.3 + partialScore*0.3, true
	case missingCount > 0:
		return -0.2, false
	default:
		return 0.0, false
	}
}

func extractModels(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, m := range modelPattern.FindAllString(text, -1) {
		if len(m) < 3 {
			continue
		}
		normalized := nonAlnum.ReplaceAllString(strings.ToUpper(m), "")
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}

func colorMatch(important1, important2 map[string]struct{}) float64 {
	colors1 := intersectColors(important1)
	colors2 := intersectColors(important2)

	if len(colors1) == 0 && len(colors2) == 0 {
		return 1.0
	}
	if setsEqual(colors1, colors2) {
		return 1.0
	}
	for c := range colors1 {
		if _, ok := colors2[c]; ok {
			return 0.5
		}
	}
	return 0.0
}

func intersectColors(words map[string]struct{}) map[string]struct{} {
	set := make(map[string]struct{})
	for w := range words {
		if _, ok := colorWords[w]; ok {
			set[w] = struct{}{}
		}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
