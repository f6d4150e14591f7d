// Package prescription turns OCR text from a prescription photo into
// medication fields. Extraction is heuristic: labeled values ("약품명: ...")
// are trusted over guesses made from line shapes.
package prescription

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ExtractedFields holds the best-effort result of Extract. A nil field was not
// found in the text. Name alone can be empty: the line heuristic may match a
// line such as "( )정" whose name part trims to nothing.
type ExtractedFields struct {
	Name         *string `json:"name,omitempty"`
	Dosage       *string `json:"dosage,omitempty"`
	Frequency    *string `json:"frequency,omitempty"`
	Duration     *string `json:"duration,omitempty"`
	HospitalName *string `json:"hospitalName,omitempty"`
	DoctorName   *string `json:"doctorName,omitempty"`
	Effect       *string `json:"effect,omitempty"`
}

// HasName reports whether a non-empty medication name was extracted.
func (f ExtractedFields) HasName() bool {
	return f.Name != nil && *f.Name != ""
}

const (
	nameScanLines      = 10
	doctorLineMaxRunes = 20
)

var (
	nameLineMarkers     = []string{"mg", "정", "캡슐"}
	hospitalLineMarkers = []string{"병원", "의원", "클리닉"}
	doctorLineMarkers   = []string{"의사", "선생님"}

	namePattern      = regexp.MustCompile(`[가-힣\w\s]+(?:\d+mg)?`)
	frequencyPattern = regexp.MustCompile(`\d+일\s*\d+회|\d+회/일|식[전후]|아침|점심|저녁`)
	doctorKeywords   = regexp.MustCompile(`의사|선생님`)

	labeledName     = regexp.MustCompile(`(?i)(?:약품명|성분명|제품명)[:\s]*([^\n]+)`)
	labeledDosage   = regexp.MustCompile(`(?i)(?:용법용량|복용법|용량)[:\s]*([^\n]+)`)
	labeledDuration = regexp.MustCompile(`(?i)(?:투여일수|복용기간|일수)[:\s]*(\d+)일?`)
	labeledHospital = regexp.MustCompile(`(?i)(?:의료기관|병원명|요양기관)[:\s]*([^\n]+)`)
	labeledDoctor   = regexp.MustCompile(`(?i)(?:의사명|처방의|담당의)[:\s]*([^\n]+)`)
	labeledEffect   = regexp.MustCompile(`(?i)(?:효능|주치|적응증)[:\s]*([^\n]+)`)
)

// Extract derives medication fields from raw OCR text. It never fails; text
// with nothing recognizable yields a zero ExtractedFields.
func Extract(text string) ExtractedFields {
	lines := splitLines(text)
	var f ExtractedFields

	// Heuristic name: first early line that looks like a drug with a strength
	// or dosage form.
	for i, line := range lines {
		if i >= nameScanLines {
			break
		}
		if !containsAny(line, nameLineMarkers) {
			continue
		}
		if m := namePattern.FindString(line); m != "" && f.Name == nil {
			f.Name = ptr(strings.TrimSpace(m))
			break
		}
	}

	for _, line := range lines {
		if frequencyPattern.MatchString(line) && f.Frequency == nil {
			f.Frequency = ptr(line)
			break
		}
	}

	// Labeled values overwrite whatever the heuristics found.
	if v, ok := labeled(labeledName, text); ok {
		f.Name = v
	}
	if v, ok := labeled(labeledDosage, text); ok {
		f.Dosage = v
	}
	if v, ok := labeled(labeledDuration, text); ok {
		f.Duration = v
	}
	if v, ok := labeled(labeledHospital, text); ok {
		f.HospitalName = v
	}
	if v, ok := labeled(labeledDoctor, text); ok {
		f.DoctorName = v
	}
	if v, ok := labeled(labeledEffect, text); ok {
		f.Effect = v
	}

	if f.HospitalName == nil {
		for _, line := range lines {
			if containsAny(line, hospitalLineMarkers) {
				f.HospitalName = ptr(line)
				break
			}
		}
	}

	if f.DoctorName == nil {
		for _, line := range lines {
			if containsAny(line, doctorLineMarkers) && utf8.RuneCountInString(line) < doctorLineMaxRunes {
				f.DoctorName = ptr(strings.TrimSpace(doctorKeywords.ReplaceAllString(line, "")))
				break
			}
		}
	}

	return f
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func labeled(re *regexp.Regexp, text string) (*string, bool) {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 || m[1] == "" {
		return nil, false
	}
	return ptr(strings.TrimSpace(m[1])), true
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func ptr(s string) *string { return &s }
