// Package report reads the current period report out of the gradebook document: one entry
// per course with its identity, schedule and numeric scores per bucket.
package report

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/htmlutil"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/skyward/gridobject"
	"skyward-backend/lib/telemetry"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("skyward/report")

const (
	report_parser_details = "parser.details"

	courseIdCell = "cId"
	courseAttr   = "data-cni"
	bucketAttr   = "data-bkt"
)

type Score struct {
	Bucket string  `json:"bucket" yaml:"bucket"`
	Score  float64 `json:"score" yaml:"score"`
}

// Course is one course of the current period report.
type Course struct {
	CourseID   int      `json:"course" yaml:"course"`
	CourseName string   `json:"courseName" yaml:"courseName"`
	Instructor *string  `json:"instructor" yaml:"instructor"`
	Period     *int     `json:"period" yaml:"period"`
	Time       *string  `json:"time" yaml:"time"`
	Semester   Semester `json:"semester" yaml:"semester"`
	Scores     []Score  `json:"scores" yaml:"scores"`
}

type Report struct {
	Courses []Course `json:"data" yaml:"data"`
}

// Details is what the class description table of a course lists.
type Details struct {
	CourseName string
	Instructor string
	Period     int
	Time       string
}

var (
	classDescRegex = regexp.MustCompile(`classDesc_\d+_(\d+)_\d+_\d+`)
	periodRegex    = regexp.MustCompile(`Period\s*(\d+)`)
	timeRegex      = regexp.MustCompile(`\(([^)]+)\)`)
)

// ParseDetails reads every `classDesc_*` table of the gradebook document keyed by course
// number.
func ParseDetails(doc *goquery.Document) map[int]Details {
	details := map[int]Details{}
	doc.Find(`table[id*="classDesc_"]`).Each(func(_ int, table *goquery.Selection) {
		m := classDescRegex.FindStringSubmatch(table.AttrOr("id", ""))
		if m == nil {
			return
		}
		courseId, err := strconv.Atoi(m[1])
		if err != nil {
			return
		}

		d := Details{
			CourseName: strings.TrimSpace(table.Find("span.bld.classDesc a").Text()),
			Instructor: strings.TrimSpace(table.Find("tr:last-child td a").Text()),
		}
		periodRow := table.Find("tr:nth-child(2) td")
		if pm := periodRegex.FindStringSubmatch(periodRow.Text()); pm != nil {
			d.Period, _ = strconv.Atoi(pm[1])
		}
		if tm := timeRegex.FindStringSubmatch(periodRow.Find("span.fXs.fWn").Text()); tm != nil {
			d.Time = tm[1]
		}
		details[courseId] = d
	})
	return details
}

// parseScore reads the numeric score of a grade anchor, blank and non-numeric grades are
// not scores.
func parseScore(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}

// ParseRow reads a grade grid row, ok is false when no cell carries a course number and
// bucket.
func ParseRow(row gridobject.Row) (courseId int, scores []Score, ok bool) {
	scores = []Score{}
	for _, cell := range row.Cells {
		if cell.Markup == "" {
			continue
		}
		anchor := htmlutil.ParseFragment(cell.Markup).Find("a").First()
		if anchor.Length() == 0 {
			continue
		}
		course, err := strconv.Atoi(strings.TrimSpace(anchor.AttrOr(courseAttr, "")))
		bucket := anchor.AttrOr(bucketAttr, "")
		if err != nil || course == 0 || bucket == "" {
			continue
		}
		courseId = course
		ok = true
		// a blank anchor is an ungraded period, recording it as 0 would overwrite a history slot
		if score, valid := parseScore(anchor.Text()); valid {
			scores = append(scores, Score{Bucket: bucket, Score: score})
		}
	}
	return courseId, scores, ok
}

func optional[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

func newCourse(courseId int, d Details, semester Semester, scores []Score) Course {
	name := d.CourseName
	if name == "" {
		name = fmt.Sprintf("Course %d", courseId)
	}
	return Course{
		CourseID:   courseId,
		CourseName: name,
		Instructor: optional(d.Instructor),
		Period:     optional(d.Period),
		Time:       optional(d.Time),
		Semester:   semester,
		Scores:     scores,
	}
}

type Parser struct {
	tel telemetry.API
}

func NewParser(tel telemetry.API) Parser {
	assert.NotNil(tel)
	return Parser{tel: telemetry.NewScopedAPI("report", tel)}
}

// Parse builds the report of a gradebook document. Courses with grade rows come first in
// grid order, courses only listed in a class description table follow by course number.
func (p Parser) Parse(ctx context.Context, document string, terms TermMap) (*Report, error) {
	ctx, span := tracer.Start(ctx, "Parse")
	defer span.End()

	obj, err := gridobject.Extract(ctx, document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract grid object")
		return nil, err
	}
	table, err := gridobject.FindTable(obj, gridobject.GradesGrid)
	if errors.Is(err, skyerr.ErrEmptyTable) {
		return &Report{Courses: []Course{}}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to find grades grid")
		return nil, err
	}

	doc, err := htmlutil.Parse(document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse gradebook html")
		return nil, err
	}
	details := ParseDetails(doc)

	report := &Report{Courses: []Course{}}
	seen := map[int]bool{}
	for _, row := range table.Rows {
		if row.Empty() {
			continue
		}
		if id, ok := row.Cells[0].Attr(courseIdCell); !ok || id == "" {
			continue
		}
		courseId, scores, ok := ParseRow(row)
		if !ok {
			continue
		}
		seen[courseId] = true

		d, found := details[courseId]
		if !found {
			p.tel.ReportWarning(report_parser_details, "no class description for course", courseId)
		}
		semester, inMap := terms.Semester(d.CourseName)
		if !inMap {
			semester = ClassifySemester(BucketTerms(scores))
		}
		report.Courses = append(report.Courses, newCourse(courseId, d, semester, scores))
	}

	for _, courseId := range slices.Sorted(maps.Keys(details)) {
		if seen[courseId] {
			continue
		}
		d := details[courseId]
		semester, inMap := terms.Semester(d.CourseName)
		if !inMap {
			semester = Both
		}
		report.Courses = append(report.Courses, newCourse(courseId, d, semester, []Score{}))
	}

	span.SetAttributes(
		attribute.Int("courses", len(report.Courses)),
		attribute.Int("details", len(details)),
	)
	return report, nil
}

// ParseDocuments builds the report of a gradebook document using the term grid of the
// academic history document. A history document without a grid object still yields a
// report, with semesters derived from buckets.
func (p Parser) ParseDocuments(ctx context.Context, gradebook, history string) (*Report, error) {
	terms := TermMap{}
	obj, err := gridobject.Extract(ctx, history)
	switch {
	case err == nil:
		terms = BuildTermMap(obj)
	case errors.Is(err, skyerr.ErrExtractionNotFound):
		p.tel.ReportDebug("history document has no grid object, using bucket terms")
	default:
		return nil, err
	}
	return p.Parse(ctx, gradebook, terms)
}
