// Package gradebook turns the active gradebook grid into a per-course, per-bucket grade table.
package gradebook

import (
	"context"
	"fmt"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/htmlutil"
	"skyward-backend/lib/skyward/gridobject"
	"skyward-backend/lib/telemetry"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("skyward/gradebook")

const (
	report_parser_parse = "parser.parse"

	// UnknownCourse names grade entries whose grouping id resolved to nothing.
	UnknownCourse = "Unknown Course"

	groupingAttr = "group-parent"
	gradeAnchor  = "a#showGradeInfo"
	bucketAttr   = "data-bkt"
)

// GradeEntry is one scored grading period of one course.
type GradeEntry struct {
	GroupingID string `json:"groupParent"`
	Bucket     string `json:"bucket"`
	Grade      string `json:"grade"`
}

// CourseRecord maps course name -> bucket -> grade.
type CourseRecord map[string]map[string]string

type Parser struct {
	index *CourseIndex
	tel   telemetry.API
}

func NewParser(index *CourseIndex, tel telemetry.API) Parser {
	assert.NotNil(index)
	assert.NotNil(tel)
	return Parser{
		index: index,
		tel:   telemetry.NewScopedAPI("gradebook", tel),
	}
}

// Entries walks the grade table rows, rows without a grouping id are skipped and every
// cell carrying a grade anchor contributes one entry. Entries are grouped by grouping id in
// order of first appearance.
func Entries(table gridobject.Table) []GradeEntry {
	var order []string
	grouped := map[string][]GradeEntry{}

	for _, row := range table.Rows {
		if row.Empty() {
			continue
		}
		groupingId := htmlutil.ParseFragment(row.Markup).
			Find("tr").First().
			AttrOr(groupingAttr, "")
		if groupingId == "" {
			continue
		}
		if _, seen := grouped[groupingId]; !seen {
			order = append(order, groupingId)
			grouped[groupingId] = nil
		}

		for _, cell := range row.Cells {
			if cell.Markup == "" {
				continue
			}
			anchor := htmlutil.ParseFragment(cell.Markup).Find(gradeAnchor).First()
			if anchor.Length() == 0 {
				continue
			}
			grouped[groupingId] = append(grouped[groupingId], GradeEntry{
				GroupingID: groupingId,
				Bucket:     anchor.AttrOr(bucketAttr, ""),
				Grade:      strings.TrimSpace(anchor.Text()),
			})
		}
	}

	var entries []GradeEntry
	for _, id := range order {
		entries = append(entries, grouped[id]...)
	}
	return entries
}

// Parse resolves every entry of the grade table to a course name using the tables of the
// whole gradebook document and flattens them into a CourseRecord.
func (p Parser) Parse(ctx context.Context, table gridobject.Table, document string) (CourseRecord, error) {
	ctx, span := tracer.Start(ctx, "Parse")
	defer span.End()

	doc, err := htmlutil.Parse(document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse gradebook html")
		p.tel.ReportBroken(report_parser_parse, fmt.Errorf("parse html: %w", err))
		return nil, err
	}
	tables := doc.Find("table")

	entries := Entries(table)
	span.SetAttributes(
		attribute.Int("entries", len(entries)),
		attribute.Int("tables", tables.Length()),
	)

	record := CourseRecord{}
	for _, e := range entries {
		name := p.index.Resolve(ctx, e.GroupingID, tables)
		if name == "" {
			name = UnknownCourse
		}
		buckets, ok := record[name]
		if !ok {
			buckets = map[string]string{}
			record[name] = buckets
		}
		// a repeated bucket overwrites, the last one in the document wins
		buckets[e.Bucket] = e.Grade
	}
	p.tel.ReportCount("parser.courses", int64(len(record)))
	return record, nil
}

// ParseDocument extracts the grade grid from a gradebook document and parses it.
func (p Parser) ParseDocument(ctx context.Context, document string) (CourseRecord, error) {
	obj, err := gridobject.Extract(ctx, document)
	if err != nil {
		return nil, err
	}
	table, err := gridobject.FindTable(obj, gridobject.GradesGrid)
	if err != nil {
		return nil, err
	}
	return p.Parse(ctx, table, document)
}
