// Package normalize holds the pure string normalization used by the
// registry filter and the clinic matcher. Every function here is total
// and idempotent: normalizing an already-normalized value returns it
// unchanged.
package normalize

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

var nonDigit = regexp.MustCompile(`\D`)

// Phone reduces a free-form phone number to its last 10 digits. Numbers
// with fewer than 10 digits are unusable for indexing and yield "".
func Phone(phone string) string {
	digits := nonDigit.ReplaceAllString(phone, "")
	if len(digits) < 10 {
		return ""
	}
	return digits[len(digits)-10:]
}

// Zip5 truncates a free-form postal code (often ZIP+4) to 5 characters.
func Zip5(postal string) string {
	postal = strings.TrimSpace(postal)
	if len(postal) > 5 {
		return postal[:5]
	}
	return postal
}

// nameSuffixes are stripped from the end of organization names, in order:
// legal-entity suffixes first, then generic descriptors. Compound
// specialty descriptors ("pain management", "pain clinic") are
// deliberately absent: stripping them would collapse names like
// "downtown pain management" to a bare locality.
var nameSuffixes = []string{
	" llc", " inc", " pc", " md", " pa", " pllc", " do",
	" corp", " corporation", " associates", " group",
	" medical center", " medical", " center",
	" clinic", " clinics", " practice", " healthcare",
	" health", " wellness", " rehab", " rehabilitation",
}

var (
	punct      = regexp.MustCompile(`[^\w\s]`)
	multiSpace = regexp.MustCompile(`\s+`)
)

// Name normalizes a clinic or organization name for fuzzy comparison:
// lowercase, punctuation removal, whitespace collapse, then suffix
// stripping to a fixed point. Punctuation goes first so "Clinic, LLC"
// and "Clinic LLC" normalize identically.
func Name(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = punct.ReplaceAllString(name, "")
	name = strings.TrimSpace(multiSpace.ReplaceAllString(name, " "))

	// Strip suffixes until none match. A single pass is not enough:
	// "downtown pain clinic llc" sheds " llc" and then " clinic".
	for {
		stripped := false
		for _, suffix := range nameSuffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSpace(name[:len(name)-len(suffix)])
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}

	return name
}

// IndividualName joins a provider's first and last name, lowercased.
func IndividualName(first, last string) string {
	joined := strings.ToLower(strings.TrimSpace(first + " " + last))
	return strings.TrimSpace(multiSpace.ReplaceAllString(joined, " "))
}

// addressAbbrevs maps full street-type and directional words to USPS
// abbreviations. Matched on word boundaries so "Western" is left alone
// while "West" still abbreviates; compounds precede their prefixes in
// the alternation ("northwest" before "north").
var addressAbbrevs = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"drive":     "dr",
	"road":      "rd",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"suite":     "ste",
	"northwest": "nw",
	"northeast": "ne",
	"southwest": "sw",
	"southeast": "se",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
}

var abbrevRe = func() *regexp.Regexp {
	words := make([]string, 0, len(addressAbbrevs))
	for w := range addressAbbrevs {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if len(words[i]) != len(words[j]) {
			return len(words[i]) > len(words[j])
		}
		return words[i] < words[j]
	})
	return regexp.MustCompile(`\b(` + strings.Join(words, "|") + `)\b`)
}()

var unitToken = regexp.MustCompile(`(?:\b(?:ste|suite|unit|apt)|#)\s*\w+`)

// Address normalizes a street address for fuzzy comparison: lowercase,
// USPS abbreviations, unit/suite token removal, punctuation removal,
// whitespace collapse.
func Address(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	addr = abbrevRe.ReplaceAllStringFunc(addr, func(w string) string {
		return addressAbbrevs[w]
	})
	addr = unitToken.ReplaceAllString(addr, "")
	addr = punct.ReplaceAllString(addr, "")
	return strings.TrimSpace(multiSpace.ReplaceAllString(addr, " "))
}

// TokenSortRatio scores string similarity in [0,100], insensitive to
// token order: both inputs are tokenized, sorted, and rejoined before
// the Levenshtein comparison.
func TokenSortRatio(a, b string) int {
	sa := sortTokens(a)
	sb := sortTokens(b)
	if sa == "" && sb == "" {
		return 0
	}
	return int(math.Round(levenshtein.Similarity(sa, sb, levenshtein.NewParams()) * 100))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
