// Package matching reconciles playlist channels with EPG source catalogs.
// Guide providers rarely agree on identifier spelling ("RaiUno.it",
// "raiuno", "Rai Uno HD"), so matching works on a generated set of
// candidate spellings plus a fuzzy name fallback.
package matching

import (
	"strings"
	"unicode"
)

// Quality-tier suffixes that providers append to a channel identifier,
// with the separator variants seen in the wild.
var qualitySuffixes = []string{
	"HD", "FullHD", "Full HD", "FHD", "4K", "UHD",
	" HD", " FullHD", " Full HD", " FHD", " 4K", " UHD",
	"_HD", "_FullHD", "_Full_HD", "_FHD", "_4K", "_UHD",
	"-HD", "-FullHD", "-Full-HD", "-FHD", "-4K", "-UHD",
}

// Top-level-domain style suffixes used by xmltv identifiers.
var tlds = []string{".it", ".com", ".net", ".tv", ".eu"}

// Variations generates plausible alternate spellings of a tvg-id. The result
// preserves insertion order, contains no duplicates, and never contains the
// input itself; callers that want to try the literal identifier must add it
// themselves. The set is intentionally permissive: false candidates are
// filtered downstream by the enabled-source catalog lookup.
func Variations(tvgID string) []string {
	if tvgID == "" {
		return nil
	}

	var out []string
	seen := map[string]bool{tvgID: true}
	add := func(v string) {
		if v == "" || seen[v] {
			return
		}
		seen[v] = true
		out = append(out, v)
	}

	// Clean form: quality suffix stripped, then any TLD stripped.
	cleanID := stripQualitySuffixes(tvgID)
	cleanID = stripTLD(cleanID)

	if cleanID != tvgID {
		add(cleanID)
	}
	for _, tld := range tlds {
		if !hasSuffixFold(cleanID, tld) {
			add(cleanID + tld)
		}
	}

	// Add or remove TLDs on the original identifier.
	if !hasAnyTLD(tvgID) {
		for _, tld := range tlds {
			add(tvgID + tld)
		}
	} else {
		for _, tld := range tlds {
			if !hasSuffixFold(tvgID, tld) {
				continue
			}
			withoutTLD := tvgID[:len(tvgID)-len(tld)]
			add(withoutTLD)

			// The quality suffix may sit before the TLD ("RaiUno HD.it").
			cleaned := stripQualitySuffixes(withoutTLD)
			if cleaned != withoutTLD {
				add(cleaned)
				add(cleaned + tld)
			}
		}
	}

	// Case variants of the original and the clean form, each with TLDs.
	addCased := func(s string) {
		add(s)
		for _, tld := range tlds {
			add(s + tld)
		}
	}
	if first := firstRune(tvgID); first != 0 && unicode.IsLower(first) {
		addCased(capitalize(tvgID))
		addCased(capitalize(cleanID))
	}
	if lower := strings.ToLower(tvgID); lower != tvgID {
		addCased(lower)
		addCased(strings.ToLower(cleanID))
	}
	if upper := strings.ToUpper(tvgID); upper != tvgID {
		addCased(upper)
		addCased(strings.ToUpper(cleanID))
	}

	return out
}

// stripQualitySuffixes removes every recognized quality suffix from the end
// of s, case-insensitively, trimming leftover whitespace and separators.
func stripQualitySuffixes(s string) string {
	for _, suffix := range qualitySuffixes {
		if hasSuffixFold(s, suffix) {
			s = strings.TrimRight(s[:len(s)-len(suffix)], " _-")
		}
	}
	return s
}

func stripTLD(s string) string {
	for _, tld := range tlds {
		if hasSuffixFold(s, tld) {
			return s[:len(s)-len(tld)]
		}
	}
	return s
}

func hasAnyTLD(s string) bool {
	for _, tld := range tlds {
		if hasSuffixFold(s, tld) {
			return true
		}
	}
	return false
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
