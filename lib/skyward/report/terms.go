package report

import (
	"regexp"
	"skyward-backend/lib/skyward/gridobject"
	"slices"
	"strconv"
	"strings"
)

// Semester is the part of the school year a course spans.
type Semester string

const (
	Fall    Semester = "fall"
	Spring  Semester = "spring"
	Both    Semester = "both"
	Unknown Semester = "unknown"
)

const (
	minTerm = 1
	maxTerm = 12
)

// semester term ranges, a course with terms in both halves spans the year
var (
	earlyTerms = [2]int{1, 2}
	lateTerms  = [2]int{3, 4}
)

func inRange(term int, r [2]int) bool {
	return term >= r[0] && term <= r[1]
}

// ClassifySemester maps a set of term numbers to the semester they cover.
func ClassifySemester(terms []int) Semester {
	early := slices.ContainsFunc(terms, func(t int) bool { return inRange(t, earlyTerms) })
	late := slices.ContainsFunc(terms, func(t int) bool { return inRange(t, lateTerms) })
	switch {
	case early && late:
		return Both
	case early:
		return Fall
	case late:
		return Spring
	}
	return Unknown
}

var bucketTermRegex = regexp.MustCompile(`TERM (\d+)`)

// BucketTerms returns the term numbers of every `TERM <n>` bucket in scores.
func BucketTerms(scores []Score) []int {
	var terms []int
	for _, s := range scores {
		m := bucketTermRegex.FindStringSubmatch(s.Bucket)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		terms = append(terms, n)
	}
	return terms
}

// TermMap maps a course name (as listed in the academic history term grid) to the term
// numbers it is scheduled in, in order of first appearance.
type TermMap map[string][]int

// Semester classifies the named course, ok is false when the course is not in the map.
func (m TermMap) Semester(courseName string) (Semester, bool) {
	terms, ok := m[courseName]
	if !ok || courseName == "" {
		return Unknown, false
	}
	return ClassifySemester(terms), true
}

func (m TermMap) add(courseName string, terms []int) {
	existing := m[courseName]
	for _, t := range terms {
		if !slices.Contains(existing, t) {
			existing = append(existing, t)
		}
	}
	m[courseName] = existing
}

var (
	termNameRegex   = regexp.MustCompile(`^([^(]+)`)
	bareNumberRegex = regexp.MustCompile(`^\d+$`)
	bareRangeRegex  = regexp.MustCompile(`^\d+\s*-\s*\d+$`)
	termRangeRegex  = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)
	singleTermRegex = regexp.MustCompile(`(?i)(?:Term\s*)?(\d+)`)
)

// cellTerms reads the terms a term grid cell lists, a range like `1 - 4` adds every term in
// it, otherwise a single `Term 3` or `3` is used.
func cellTerms(text string) []int {
	if m := termRangeRegex.FindStringSubmatch(text); m != nil {
		start, err1 := strconv.Atoi(m[1])
		end, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || start < minTerm || end > maxTerm || start > end {
			return nil
		}
		terms := make([]int, 0, end-start+1)
		for t := start; t <= end; t++ {
			terms = append(terms, t)
		}
		return terms
	}
	m := singleTermRegex.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	t, err := strconv.Atoi(m[1])
	if err != nil || t < minTerm || t > maxTerm {
		return nil
	}
	return []int{t}
}

// cellCourseName returns the text before the first `(` of a cell when it is not just a term
// number or range.
func cellCourseName(text string) string {
	m := termNameRegex.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	if bareNumberRegex.MatchString(name) || bareRangeRegex.MatchString(name) {
		return ""
	}
	return name
}

// ParseTermRow returns the course name and terms listed by one term grid row.
func ParseTermRow(row gridobject.Row) (string, []int) {
	courseName := ""
	var terms []int
	for _, cell := range row.Cells {
		if cell.Text == "" {
			continue
		}
		if courseName == "" {
			courseName = cellCourseName(cell.Text)
		}
		for _, t := range cellTerms(cell.Text) {
			if !slices.Contains(terms, t) {
				terms = append(terms, t)
			}
		}
	}
	return courseName, terms
}

// BuildTermMap reads the academic history term grid of obj, a grid object without one
// yields an empty map.
func BuildTermMap(obj gridobject.GridObject) TermMap {
	termMap := TermMap{}
	table, err := gridobject.FindTable(obj, gridobject.TermGrid)
	if err != nil {
		return termMap
	}
	for _, row := range table.Rows {
		if row.Empty() {
			continue
		}
		courseName, terms := ParseTermRow(row)
		if courseName == "" || len(terms) == 0 {
			continue
		}
		termMap.add(courseName, terms)
	}
	return termMap
}
