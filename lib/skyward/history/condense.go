package history

import (
	"context"
	"errors"
	"skyward-backend/lib/htmlutil"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/skyward/gridobject"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("skyward/history")

// AcademicYearSection is a year header together with every row up to the next header.
type AcademicYearSection struct {
	Header
	Rows []gridobject.Row
}

// Partition splits the rows of a history table into year sections, rows before the first
// header are dropped and structurally empty rows are skipped.
func Partition(table gridobject.Table) []AcademicYearSection {
	var sections []AcademicYearSection
	var current *AcademicYearSection
	for _, row := range table.Rows {
		if row.Empty() {
			continue
		}
		header, ok := ParseHeader(htmlutil.Text(row.Cells[0].Markup))
		if ok {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &AcademicYearSection{Header: header}
			continue
		}
		if current == nil {
			continue
		}
		current.Rows = append(current.Rows, row)
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}

// columns returns the plain text of every cell's markup.
func columns(row gridobject.Row) []string {
	out := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		out[i] = htmlutil.Text(cell.Markup)
	}
	return out
}

func column(cols []string, i int) string {
	if i < len(cols) {
		return cols[i]
	}
	return ""
}

// ParseRow reads a course row into a record, ok is false when the row fails the validity
// rule.
func ParseRow(row gridobject.Row) (record CourseHistoryRecord, ok bool) {
	if row.Empty() {
		return CourseHistoryRecord{}, false
	}
	cols := columns(row)

	record = CourseHistoryRecord{
		CourseName: column(cols, nameColumn),
		Terms:      column(cols, termsColumn),
		IsAltTrack: IsAltTrack(row.Cells[0].Markup),
	}
	if !Valid(record.CourseName, cols) {
		return CourseHistoryRecord{}, false
	}
	for i, s := range Columns {
		record.Set(s, column(cols, firstSlotColumn+i))
	}
	record.FinalGrade = record.ComputeFinalGrade()
	return record, true
}

// CondenseSection returns the regular and alt-track courses of one year section.
func CondenseSection(section AcademicYearSection) (regular, alt map[string]CourseHistoryRecord) {
	regular = map[string]CourseHistoryRecord{}
	alt = map[string]CourseHistoryRecord{}
	for _, row := range section.Rows {
		record, ok := ParseRow(row)
		if !ok {
			continue
		}
		if record.IsAltTrack {
			alt[record.CourseName] = record
			continue
		}
		regular[record.CourseName] = record
	}
	return regular, alt
}

// CondenseTables condenses the given history tables in order, a year key produced by a
// later table replaces the one produced by an earlier table.
func CondenseTables(ctx context.Context, tables []gridobject.Table) *AcademicHistory {
	_, span := tracer.Start(ctx, "CondenseTables")
	defer span.End()

	history := NewAcademicHistory()
	sectionCount := 0
	for _, table := range tables {
		for _, section := range Partition(table) {
			sectionCount++
			regular, alt := CondenseSection(section)
			key := section.Key()
			if len(regular) > 0 {
				history.Years[key] = Year{GradeLevel: section.GradeLevel, Courses: regular}
			}
			if len(alt) > 0 {
				history.Alt[key] = Year{GradeLevel: section.GradeLevel, Courses: alt}
			}
		}
	}

	span.SetAttributes(
		attribute.Int("tables", len(tables)),
		attribute.Int("sections", sectionCount),
		attribute.Int("years", len(history.Years)),
	)
	return history
}

// Condense condenses every history grid of obj. A grid object without a history grid, or
// whose history grids are all empty, yields an empty history.
func Condense(ctx context.Context, obj gridobject.GridObject) (*AcademicHistory, error) {
	tables, err := gridobject.FindTables(obj, gridobject.HistoryGrid)
	if errors.Is(err, skyerr.ErrGridKeyNotFound) || errors.Is(err, skyerr.ErrEmptyTable) {
		return NewAcademicHistory(), nil
	}
	if err != nil {
		return nil, err
	}
	return CondenseTables(ctx, tables), nil
}

// CondenseDocument extracts the grid object of a history document and condenses it.
func CondenseDocument(ctx context.Context, document string) (*AcademicHistory, error) {
	obj, err := gridobject.Extract(ctx, document)
	if err != nil {
		return nil, err
	}
	return Condense(ctx, obj)
}
