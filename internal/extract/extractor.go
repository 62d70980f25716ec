// Package extract recovers structured identity fields from raw OCR text.
//
// Everything here is best-effort heuristics over noisy scanner output: a
// field that cannot be recovered degrades to the "N/A" sentinel, never an
// error. The heuristics are layout-dependent by nature (Aadhaar letters put
// the holder name after a "To" line, PAN cards print the name above the PAN
// number) and are kept as independently testable pure functions.
package extract

import (
	"regexp"
	"strings"

	"kycintake/internal/domain"
)

var (
	panHeaderRE     = regexp.MustCompile(`(?i)INCOME TAX DEPARTMENT|PERMANENT ACCOUNT NUMBER|INCOME TAX INDIA`)
	aadhaarHeaderRE = regexp.MustCompile(`(?i)AADHAAR|UIDAI`)

	panNumberRE     = regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`)
	aadhaarNumberRE = regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`)

	dobLabelRE  = regexp.MustCompile(`(?i)\b(DOB|Date of Birth|D\.O\.B)\b`)
	fullDateRE  = regexp.MustCompile(`(\d{2}[/\-]\d{2}[/\-]\d{4})`)
	bareYearRE  = regexp.MustCompile(`([0-9]{4})`)
	genderRE    = regexp.MustCompile(`(?i)\b(Male|Female|Transgender)\b`)
	relationRE  = regexp.MustCompile(`(?i)(S/O|D/O|W/O|C/O)`)
	toLineRE    = regexp.MustCompile(`(?i)^\s*to\b`)
	nameLabelRE = regexp.MustCompile(`(?i)Name`)

	pinCodeRE    = regexp.MustCompile(`\b\d{6}\b`)
	tenDigitsRE  = regexp.MustCompile(`\b\d{10}\b`)
	nonUpperRE   = regexp.MustCompile(`[^A-Z\s]`)
	nonAlphaRE   = regexp.MustCompile(`[^A-Za-z\s]`)
	multiSpaceRE = regexp.MustCompile(`\s{2,}`)

	addressAnchorRE = regexp.MustCompile(`(?i)dob|date of birth`)
)

// Identity parses raw OCR text into a structured identity record. Exactly one
// extraction path runs, chosen by document-type sniffing; fields that do not
// apply to the detected type remain "N/A".
func Identity(rawText string) domain.ExtractedIdentity {
	out := domain.ExtractedIdentity{
		Name:          domain.FieldUnavailable,
		DOB:           domain.FieldUnavailable,
		Gender:        domain.FieldUnavailable,
		Aadhaar:       domain.FieldUnavailable,
		PAN:           domain.FieldUnavailable,
		Address:       domain.FieldUnavailable,
		DocumentClass: domain.DocumentClassUnknown,
	}

	text := strings.TrimSpace(allWhitespaceRE.ReplaceAllString(rawText, " "))
	lines := splitLines(rawText)

	switch {
	case panHeaderRE.MatchString(text):
		out.DocumentClass = domain.DocumentClassPAN
		extractPAN(text, lines, &out)
	case aadhaarHeaderRE.MatchString(text):
		out.DocumentClass = domain.DocumentClassAadhaar
		extractAadhaar(text, lines, &out)
	}

	return out
}

func splitLines(rawText string) []string {
	var lines []string
	for _, line := range strings.FieldsFunc(rawText, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// ==============================================================================
// PAN CARD PATH
// ==============================================================================

func extractPAN(text string, lines []string, out *domain.ExtractedIdentity) {
	if pan := panNumberRE.FindString(text); pan != "" {
		out.PAN = pan
	}

	// DOB is printed on the line after the "DOB"/"Date of Birth" label.
	for i, line := range lines {
		if dobLabelRE.MatchString(line) && i+1 < len(lines) {
			if m := fullDateRE.FindStringSubmatch(lines[i+1]); m != nil {
				out.DOB = m[1]
				break
			}
		}
	}

	// Name candidates: the line above the PAN number, and the line after any
	// "Name" label. The longest candidate wins.
	var rawName string
	if out.PAN != domain.FieldUnavailable {
		for i, line := range lines {
			if strings.Contains(line, out.PAN) {
				if i > 0 {
					rawName = lines[i-1]
				}
				break
			}
		}
	}
	for i, line := range lines {
		if nameLabelRE.MatchString(line) && i+1 < len(lines) {
			if candidate := lines[i+1]; len(candidate) > len(rawName) {
				rawName = candidate
			}
		}
	}

	// PAN cards print names in capitals; anything else is OCR noise.
	if rawName != "" {
		cleaned := nonUpperRE.ReplaceAllString(rawName, "")
		var words []string
		for _, word := range strings.Fields(cleaned) {
			if len(word) > 1 {
				words = append(words, word)
			}
			if len(words) == 3 {
				break
			}
		}
		if name := strings.Join(words, " "); name != "" {
			out.Name = name
		}
	}
}

// ==============================================================================
// AADHAAR CARD PATH
// ==============================================================================

func extractAadhaar(text string, lines []string, out *domain.ExtractedIdentity) {
	if aadhaar := findAadhaarNumber(text); aadhaar != "" {
		out.Aadhaar = aadhaar
	}

	if m := genderRE.FindStringSubmatch(text); m != nil {
		out.Gender = strings.ToUpper(m[1])
	}

	// DOB sits on the line above the gender keyword, as a full date or a
	// bare year of birth.
	for i, line := range lines {
		if genderRE.MatchString(line) && i > 0 {
			prev := lines[i-1]
			if m := fullDateRE.FindStringSubmatch(prev); m != nil {
				out.DOB = m[1]
				break
			}
			if m := bareYearRE.FindStringSubmatch(prev); m != nil {
				out.DOB = m[1]
				break
			}
		}
	}

	if name := findAadhaarName(lines); name != "" {
		out.Name = name
	}

	if address := findAadhaarAddress(lines); address != "" {
		out.Address = address
	}
}

// findAadhaarNumber returns the first distinct 12-digit group that is not a
// VID. Virtual IDs share the 4-4-4 digit shape, so any match whose preceding
// 10 characters contain "vid" is discarded.
func findAadhaarNumber(text string) string {
	var numbers []string
	seen := make(map[string]bool)

	for _, loc := range aadhaarNumberRE.FindAllStringIndex(text, -1) {
		start := loc[0]
		ctxStart := start - 10
		if ctxStart < 0 {
			ctxStart = 0
		}
		if strings.Contains(strings.ToLower(text[ctxStart:start]), "vid") {
			continue
		}
		value := strings.ReplaceAll(text[loc[0]:loc[1]], " ", "")
		if !seen[value] {
			seen[value] = true
			numbers = append(numbers, value)
		}
	}

	if len(numbers) == 0 {
		return ""
	}
	return numbers[0]
}

// findAadhaarName collects candidates from three independent layout cues and
// keeps the longest.
func findAadhaarName(lines []string) string {
	var candidates []string

	collect := func(raw string) {
		if cleaned := strings.TrimSpace(nonAlphaRE.ReplaceAllString(raw, "")); cleaned != "" {
			candidates = append(candidates, cleaned)
		}
	}

	// Line after the postal "To" salutation.
	for i, line := range lines {
		if toLineRE.MatchString(line) {
			if i+1 < len(lines) {
				collect(lines[i+1])
			}
			break
		}
	}

	// Line before the guardian relation (S/O, D/O, W/O, C/O).
	for i, line := range lines {
		if relationRE.MatchString(line) {
			if i > 0 {
				collect(lines[i-1])
			}
			break
		}
	}

	// Line before the DOB label.
	for i, line := range lines {
		if dobLabelRE.MatchString(line) {
			if i > 0 {
				collect(lines[i-1])
			}
			break
		}
	}

	longest := ""
	for _, candidate := range candidates {
		if len(candidate) > len(longest) {
			longest = candidate
		}
	}
	return longest
}

// findAadhaarAddress takes up to five lines after the relation (or DOB)
// anchor, stopping at the line carrying the 6-digit postal code. Ten-digit
// numbers are scrubbed out since phone numbers and Aadhaar fragments leak
// into the address block.
func findAadhaarAddress(lines []string) string {
	var addressLines []string
	for i, line := range lines {
		if relationRE.MatchString(line) {
			addressLines = sliceLines(lines, i+1, i+6)
			break
		} else if addressAnchorRE.MatchString(line) && i > 0 {
			addressLines = sliceLines(lines, i+1, i+6)
			break
		}
	}

	if len(addressLines) == 0 {
		return ""
	}

	var combined []string
	for _, line := range addressLines {
		combined = append(combined, line)
		if pinCodeRE.MatchString(line) {
			break
		}
	}

	address := strings.Join(combined, " ")
	address = tenDigitsRE.ReplaceAllString(address, "")
	address = multiSpaceRE.ReplaceAllString(address, " ")
	return strings.TrimSpace(address)
}

func sliceLines(lines []string, from, to int) []string {
	if from >= len(lines) {
		return nil
	}
	if to > len(lines) {
		to = len(lines)
	}
	return lines[from:to]
}
