package report

import (
	"context"
	"fmt"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/telemetry"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func classDesc(courseId int, name, periodCell, instructor string) string {
	return fmt.Sprintf(`
<table id="classDesc_01_%d_001_1">
	<tr><td><span class="bld classDesc"><a href="javascript:void(0)">%s</a></span></td></tr>
	<tr><td>%s</td></tr>
	<tr><td><a href="javascript:void(0)">%s</a></td></tr>
</table>`, courseId, name, periodCell, instructor)
}

func anchor(courseId int, bucket, text string) string {
	return fmt.Sprintf(
		`{h: '<td><a id="showGradeInfo" data-cni="%d" data-bkt="%s">%s</a></td>'},`,
		courseId, bucket, text,
	)
}

func script(literal string) string {
	return `<script data-rel="sff">sff.sv('sf_gridObjects', $.extend((sff.getValue('sf_gridObjects') || {}), ` +
		literal + `));</script>`
}

var gradebookDocument = `<html><body>` +
	classDesc(100, "ALGEBRA I", `Period 2 <span class="fXs fWn">(8:50 AM - 9:40 AM)</span>`, "Smith, Jane") +
	classDesc(200, "BIOLOGY", "Period 5", "Doe, John") +
	classDesc(300, "ART", "Period 1", "Lee, Ann") +
	script(`{stuGradesGrid_1_2: {tb: {r: [
		{c: [
			{h: '<td>ALGEBRA I</td>', cId: 'c1'},
			`+anchor(100, "TERM 1", "93")+`
			`+anchor(100, "TERM 2", "")+`
			`+anchor(100, "SEM 1", "A")+`
		]},
		{c: [
			{h: '<td>BIOLOGY</td>', cId: 'c2'},
			`+anchor(200, "TERM 3", " 88.5 ")+`
		]},
		{c: [
			{h: '<td>no id</td>'},
			`+anchor(999, "TERM 1", "50")+`
		]},
		{c: [
			{h: '<td>?</td>', cId: 'c4'},
			`+anchor(400, "TERM 1", "75")+`
		]},
		{c: []},
	]}}}`) +
	`</body></html>`

func TestParseScore(t *testing.T) {
	testCases := []struct {
		text     string
		score    float64
		expected bool
	}{
		{text: "93", score: 93, expected: true},
		{text: " 88.5 ", score: 88.5, expected: true},
		{text: "", expected: false},
		{text: "   ", expected: false},
		{text: "A", expected: false},
	}

	for _, test := range testCases {
		score, ok := parseScore(test.text)
		require.Equal(t, test.expected, ok, test.text)
		require.Equal(t, test.score, score, test.text)
	}
}

func TestParse(t *testing.T) {
	rec := telemetry.NewRecorder()
	parser := NewParser(rec)

	report, err := parser.Parse(context.Background(), gradebookDocument, TermMap{
		"ALGEBRA I": {1, 2, 3, 4},
	})
	if err != nil {
		t.Fatal(err)
	}

	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }
	expected := &Report{Courses: []Course{
		{
			CourseID:   100,
			CourseName: "ALGEBRA I",
			Instructor: str("Smith, Jane"),
			Period:     num(2),
			Time:       str("8:50 AM - 9:40 AM"),
			Semester:   Both,
			Scores:     []Score{{Bucket: "TERM 1", Score: 93}},
		},
		{
			CourseID:   200,
			CourseName: "BIOLOGY",
			Instructor: str("Doe, John"),
			Period:     num(5),
			Semester:   Spring,
			Scores:     []Score{{Bucket: "TERM 3", Score: 88.5}},
		},
		{
			CourseID:   400,
			CourseName: "Course 400",
			Semester:   Fall,
			Scores:     []Score{{Bucket: "TERM 1", Score: 75}},
		},
		{
			CourseID:   300,
			CourseName: "ART",
			Instructor: str("Lee, Ann"),
			Period:     num(1),
			Semester:   Both,
			Scores:     []Score{},
		},
	}}
	if diff := cmp.Diff(expected, report); diff != "" {
		t.Fatalf("report (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, rec.Count("warning", report_parser_details))
}

func TestParseDocuments(t *testing.T) {
	history := `<html><body>` + script(`{ahGrid_5_6: {tb: {r: [
		{c: [{d: 'ART (ART1)'}, {d: '1 - 2'}]},
		{c: [{d: 'BIOLOGY'}, {d: '1 - 4'}]},
	]}}}`) + `</body></html>`

	parser := NewParser(telemetry.NewRecorder())
	report, err := parser.ParseDocuments(context.Background(), gradebookDocument, history)
	require.NoError(t, err)

	semesters := map[string]Semester{}
	for _, c := range report.Courses {
		semesters[c.CourseName] = c.Semester
	}
	require.Equal(t, map[string]Semester{
		"ALGEBRA I":  Fall,
		"BIOLOGY":    Both,
		"Course 400": Fall,
		"ART":        Fall,
	}, semesters)

	// without a history grid object semesters come from buckets
	report, err = parser.ParseDocuments(context.Background(), gradebookDocument, "<html></html>")
	require.NoError(t, err)
	require.Equal(t, Fall, report.Courses[0].Semester)
	require.Equal(t, Both, report.Courses[3].Semester)
}

func TestParseErrors(t *testing.T) {
	parser := NewParser(telemetry.NewRecorder())

	_, err := parser.Parse(context.Background(), "<html></html>", TermMap{})
	require.ErrorIs(t, err, skyerr.ErrExtractionNotFound)

	_, err = parser.Parse(context.Background(), script(`{other_1: {}}`), TermMap{})
	require.ErrorIs(t, err, skyerr.ErrGridKeyNotFound)

	report, err := parser.Parse(
		context.Background(),
		classDesc(100, "ALGEBRA I", "Period 2", "Smith, Jane")+script(`{stuGradesGrid_1_2: {tb: {r: []}}}`),
		TermMap{},
	)
	require.NoError(t, err)
	require.Empty(t, report.Courses)
}
