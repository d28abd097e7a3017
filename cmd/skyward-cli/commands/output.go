package commands

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"regexp"
	"skyward-backend/lib/skyward/breakdown"
	"skyward-backend/lib/skyward/gradebook"
	"skyward-backend/lib/skyward/history"
	"skyward-backend/lib/skyward/report"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJson  = "json"
	formatYaml  = "yaml"
)

func addFormatFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "format", formatTable, "The output format, one of table, json or yaml.")
}

// write prints value as json or yaml, the table format is left to renderTable.
func write(format string, value any, renderTable func()) error {
	switch format {
	case formatJson:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case formatYaml:
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		err := enc.Encode(value)
		if err != nil {
			return err
		}
		return enc.Close()
	case formatTable:
		renderTable()
		return nil
	}
	return fmt.Errorf("unknown format %q, expected one of table, json or yaml", format)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

var bucketRegex = regexp.MustCompile(`^(\D*?)\s*(\d+)$`)

// compareBuckets orders buckets by their prefix then their number, `TERM 2` < `TERM 10`.
func compareBuckets(a, b string) int {
	ma := bucketRegex.FindStringSubmatch(a)
	mb := bucketRegex.FindStringSubmatch(b)
	if ma == nil || mb == nil || ma[1] != mb[1] {
		return strings.Compare(a, b)
	}
	na, _ := strconv.Atoi(ma[2])
	nb, _ := strconv.Atoi(mb[2])
	return cmp.Compare(na, nb)
}

func recordBuckets(record gradebook.CourseRecord) []string {
	set := map[string]struct{}{}
	for _, buckets := range record {
		for bucket := range buckets {
			set[bucket] = struct{}{}
		}
	}
	return slices.SortedFunc(maps.Keys(set), compareBuckets)
}

func renderGrades(record gradebook.CourseRecord) {
	buckets := recordBuckets(record)

	t := newTable()
	header := table.Row{"Course"}
	for _, bucket := range buckets {
		header = append(header, bucket)
	}
	t.AppendHeader(header)

	for _, course := range slices.Sorted(maps.Keys(record)) {
		row := table.Row{course}
		for _, bucket := range buckets {
			row = append(row, record[course][bucket])
		}
		t.AppendRow(row)
	}
	t.Render()
}

func text[T any](value *T) string {
	if value == nil {
		return ""
	}
	return fmt.Sprint(*value)
}

func historyHeader() table.Row {
	header := table.Row{"Course", "Terms"}
	for _, slot := range history.Columns {
		header = append(header, strings.ToUpper(string(slot)))
	}
	return append(header, "Final")
}

func historyRow(name string, record history.CourseHistoryRecord) table.Row {
	row := table.Row{name, record.Terms}
	for _, slot := range history.Columns {
		row = append(row, record.Get(slot))
	}
	return append(row, record.FinalGrade)
}

func renderYear(title string, year history.Year) {
	t := newTable()
	t.SetTitle(title)
	t.AppendHeader(historyHeader())
	for _, name := range slices.Sorted(maps.Keys(year.Courses)) {
		t.AppendRow(historyRow(name, year.Courses[name]))
	}
	t.Render()
}

func renderHistory(hist *history.AcademicHistory) {
	for _, key := range hist.YearKeys() {
		year := hist.Years[key]
		renderYear(fmt.Sprintf("%s (grade %d)", key, year.GradeLevel), year)
		if alt, ok := hist.Alt[key]; ok && len(alt.Courses) > 0 {
			renderYear(fmt.Sprintf("%s (grade %d, alternate track)", key, alt.GradeLevel), alt)
		}
	}
}

func renderReport(rep *report.Report) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "Course", "Instructor", "Period", "Time", "Semester", "Scores"})
	for _, course := range rep.Courses {
		scores := make([]string, len(course.Scores))
		for i, s := range course.Scores {
			scores[i] = fmt.Sprintf("%s: %s", s.Bucket, strconv.FormatFloat(s.Score, 'f', -1, 64))
		}
		t.AppendRow(table.Row{
			course.CourseID,
			course.CourseName,
			text(course.Instructor),
			text(course.Period),
			text(course.Time),
			course.Semester,
			strings.Join(scores, ", "),
		})
	}
	t.Render()
}

func renderBreakdown(b breakdown.Breakdown) {
	title := fmt.Sprintf("%s - %s - %s", b.Course, b.Instructor, b.Lit.Name)
	if b.Lit.Begin != nil && b.Lit.End != nil {
		title += fmt.Sprintf(" (%s - %s)", *b.Lit.Begin, *b.Lit.End)
	}

	t := newTable()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Category", "Weight", "Date", "Assignment", "Grade", "Score", "Points", "Notes"})
	for _, category := range b.Gradebook {
		weight := text(category.Weight)
		if category.AdjustedWeight != nil {
			weight = fmt.Sprintf("%s (%s)", weight, text(category.AdjustedWeight))
		}
		t.AppendRow(table.Row{category.Category, weight})
		for _, a := range category.Assignments {
			points := ""
			if a.Points != nil {
				points = fmt.Sprintf("%v / %v", a.Points.Earned, a.Points.Total)
			}
			notes := make([]string, len(a.Meta))
			for i, m := range a.Meta {
				notes[i] = string(m.Type)
				if m.Note != "" {
					notes[i] += ": " + m.Note
				}
			}
			t.AppendRow(table.Row{"", "", a.Date, a.Name, text(a.Grade), text(a.Score), points, strings.Join(notes, "; ")})
		}
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"", "", "", "Total", text(b.Grade), text(b.Score)})
	t.Render()
}
