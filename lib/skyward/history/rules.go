package history

import (
	"regexp"
	"strconv"
	"strings"
)

// Slot names a positional grade column of the history grid.
type Slot string

const (
	PR1 Slot = "pr1"
	PR2 Slot = "pr2"
	PR3 Slot = "pr3"
	PR4 Slot = "pr4"
	PR5 Slot = "pr5"
	PR6 Slot = "pr6"
	PR7 Slot = "pr7"
	PR8 Slot = "pr8"
	RC1 Slot = "rc1"
	RC2 Slot = "rc2"
	RC3 Slot = "rc3"
	RC4 Slot = "rc4"
	EX1 Slot = "ex1"
	EX2 Slot = "ex2"
	SM1 Slot = "sm1"
	SM2 Slot = "sm2"
)

const (
	nameColumn  = 0
	termsColumn = 1
	// firstSlotColumn is the column index of Columns[0].
	firstSlotColumn = 2
)

// Columns is the grade column layout of the portal's history grid starting at column 2, the
// order is fixed by the portal and does not follow slot numbering.
var Columns = [...]Slot{
	PR1, PR2, RC1, PR3, PR4, RC2, EX1, SM1,
	PR5, PR6, RC3, PR7, PR8, RC4, EX2, SM2,
}

// FinalGradePriority lists the slots consulted for the final grade, the first non-empty wins.
var FinalGradePriority = []Slot{SM2, SM1, RC4, RC3, RC2, RC1}

var headerRegex = regexp.MustCompile(`(\d{4})\s*-\s*(\d{4}).*Grade\s+(\d+)`)

// Header is a parsed year header row.
type Header struct {
	Begin      string
	End        string
	GradeLevel int
}

// Key is the academic year key, `<begin>-<end>`.
func (h Header) Key() string {
	return h.Begin + "-" + h.End
}

// ParseHeader matches the text of a row's first cell against the year header pattern.
func ParseHeader(text string) (Header, bool) {
	m := headerRegex.FindStringSubmatch(text)
	if m == nil {
		return Header{}, false
	}
	level, err := strconv.Atoi(m[3])
	if err != nil {
		return Header{}, false
	}
	return Header{Begin: m[1], End: m[2], GradeLevel: level}, true
}

// exclusionRules reject row names that are grid furniture rather than courses.
var exclusionRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^Class$`),
	regexp.MustCompile(`(?i)^Terms$`),
	regexp.MustCompile(`(?i)^\d{4}\s*-\s*\d{4}.*Grade`),
	regexp.MustCompile(`(?i)^PR\d+$`),
	regexp.MustCompile(`(?i)^RC\d+$`),
	regexp.MustCompile(`(?i)^EX\d+$`),
	regexp.MustCompile(`(?i)^SM\d+$`),
	regexp.MustCompile(`^\s*$`),
	regexp.MustCompile(`(?i)^LUNCH`),
}

// gradeRules recognize a column holding an actual grade.
var gradeRules = []func(col string) bool{
	regexp.MustCompile(`^\d+$`).MatchString,
	regexp.MustCompile(`^[A-F][+-]?$`).MatchString,
	func(col string) bool { return col == "P" },
}

// Excluded reports whether name matches any exclusion rule.
func Excluded(name string) bool {
	name = strings.TrimSpace(name)
	for _, rule := range exclusionRules {
		if rule.MatchString(name) {
			return true
		}
	}
	return false
}

// HasGrade reports whether any column looks like a numeric, letter or pass grade.
func HasGrade(columns []string) bool {
	for _, col := range columns {
		for _, rule := range gradeRules {
			if rule(col) {
				return true
			}
		}
	}
	return false
}

// Valid is the course validity rule, a non-excluded name and at least one grade-like column.
func Valid(name string, columns []string) bool {
	if name == "" || Excluded(name) {
		return false
	}
	return HasGrade(columns)
}

// IsAltTrack reports whether the first cell markup of a row renders plain text, regular
// courses link to a detail dialog.
func IsAltTrack(markup string) bool {
	if markup == "" {
		return false
	}
	return !strings.Contains(markup, "<a ") && !strings.Contains(markup, "<a>")
}
