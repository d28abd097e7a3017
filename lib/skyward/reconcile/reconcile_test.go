package reconcile

import (
	"context"
	"encoding/json"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/skyward/history"
	"skyward-backend/lib/skyward/report"
	"skyward-backend/lib/telemetry"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func str(s string) *string { return &s }
func num(n int) *int       { return &n }

func fixtureHistory() *history.AcademicHistory {
	h := history.NewAcademicHistory()
	h.Years["2022-2023"] = history.Year{
		GradeLevel: 9,
		Courses: map[string]history.CourseHistoryRecord{
			"Algebra I": {CourseName: "Algebra I", Terms: "1 - 4", FinalGrade: "A", Sm1: str("A")},
		},
	}
	h.Years["2023-2024"] = history.Year{
		GradeLevel: 10,
		Courses: map[string]history.CourseHistoryRecord{
			"Geometry": {
				CourseName: "Geometry",
				Terms:      "1 - 4",
				FinalGrade: "B",
				Pr1:        "88",
				Rc1:        "B",
				Ex1:        "91",
				Ex2:        "",
			},
			"Band": {CourseName: "Band", Terms: "1 - 4", Pr1: "100"},
		},
	}
	h.Alt["2023-2024"] = history.Year{
		GradeLevel: 10,
		Courses: map[string]history.CourseHistoryRecord{
			"PE Waiver": {CourseName: "PE Waiver", IsAltTrack: true, Pr1: "P"},
		},
	}
	return h
}

func TestSlotFor(t *testing.T) {
	testCases := []struct {
		bucket string
		slot   history.Slot
		ok     bool
	}{
		{"TERM 1", history.PR1, true},
		{"TERM 3", history.RC1, true},
		{"TERM 6", history.RC2, true},
		{"TERM 12", history.RC4, true},
		{"SEM 1", history.SM1, true},
		{"SEM 2", history.SM2, true},
		{"EX 1", "", false},
		{"TERM1", "", false},
		{"FIN", "", false},
	}

	for _, test := range testCases {
		t.Run(test.bucket, func(t *testing.T) {
			slot, ok := SlotFor(test.bucket)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.slot, slot)
		})
	}
}

func TestCombine(t *testing.T) {
	rec := telemetry.NewRecorder()
	reconciler := NewReconciler(rec)
	input := fixtureHistory()

	rep := &report.Report{Courses: []report.Course{
		{
			CourseID:   100,
			CourseName: "GEOMETRY",
			Instructor: str("Smith, Jane"),
			Period:     num(2),
			Time:       str("8:50 AM - 9:40 AM"),
			Semester:   report.Both,
			Scores: []report.Score{
				{Bucket: "TERM 3", Score: 92},
				{Bucket: "SEM 1", Score: 90.5},
				{Bucket: "MYSTERY", Score: 12},
			},
		},
		{
			CourseID:   200,
			CourseName: "Chemistry",
			Semester:   report.Both,
			Scores:     []report.Score{{Bucket: "TERM 1", Score: 77}},
		},
		{
			CourseID:   300,
			CourseName: "Art",
			Semester:   report.Spring,
			Scores:     []report.Score{},
		},
	}}

	combined, err := reconciler.Combine(context.Background(), input, rep)
	require.NoError(t, err)

	expected := map[string]history.CourseHistoryRecord{
		"GEOMETRY": {
			CourseName: "GEOMETRY",
			Terms:      "1 - 4",
			FinalGrade: "B",
			Pr1:        "88",
			Rc1:        "92",
			Sm1:        str("90.5"),
			Ex1:        "91",
			CourseID:   100,
			Instructor: str("Smith, Jane"),
			Period:     num(2),
			Time:       str("8:50 AM - 9:40 AM"),
		},
		"Chemistry": {
			CourseName: "Chemistry",
			Terms:      "1 - 4",
			Pr1:        "77",
			CourseID:   200,
		},
		"Art": {
			CourseName: "Art",
			CourseID:   300,
		},
	}
	if diff := cmp.Diff(expected, combined.Years["2023-2024"].Courses); diff != "" {
		t.Fatalf("combined courses (-want +got):\n%s", diff)
	}
	require.Equal(t, 10, combined.Years["2023-2024"].GradeLevel)

	// history only courses of the latest year are dropped, other years and alt are kept
	require.NotContains(t, combined.Years["2023-2024"].Courses, "Band")
	require.Equal(t, input.Years["2022-2023"], combined.Years["2022-2023"])
	require.Equal(t, input.Alt, combined.Alt)

	// the input is left untouched
	require.Equal(t, fixtureHistory(), input)
}

func TestCombineExamsOnlyFromHistory(t *testing.T) {
	reconciler := NewReconciler(telemetry.NewRecorder())

	h := history.NewAcademicHistory()
	h.Years["2023-2024"] = history.Year{
		GradeLevel: 10,
		Courses: map[string]history.CourseHistoryRecord{
			"Biology": {CourseName: "Biology", Ex1: "", Ex2: "84"},
		},
	}
	rep := &report.Report{Courses: []report.Course{{
		CourseID:   1,
		CourseName: "Biology",
		Scores: []report.Score{
			{Bucket: "EX 1", Score: 99},
			{Bucket: "EX 2", Score: 99},
		},
	}}}

	combined, err := reconciler.Combine(context.Background(), h, rep)
	require.NoError(t, err)
	record := combined.Years["2023-2024"].Courses["Biology"]
	require.Equal(t, "", record.Ex1)
	require.Equal(t, "84", record.Ex2)
}

func TestCombineEdgeCases(t *testing.T) {
	reconciler := NewReconciler(telemetry.NewRecorder())
	ctx := context.Background()

	_, err := reconciler.Combine(ctx, nil, &report.Report{})
	require.ErrorIs(t, err, skyerr.ErrReconciliationInputInvalid)

	_, err = reconciler.Combine(ctx, history.NewAcademicHistory(), nil)
	require.ErrorIs(t, err, skyerr.ErrReconciliationInputInvalid)

	// only alt years, nothing to merge into
	onlyAlt := history.NewAcademicHistory()
	onlyAlt.Alt["2023-2024"] = history.Year{GradeLevel: 10, Courses: map[string]history.CourseHistoryRecord{}}
	combined, err := reconciler.Combine(ctx, onlyAlt, &report.Report{Courses: []report.Course{{CourseName: "X"}}})
	require.NoError(t, err)
	require.Equal(t, onlyAlt, combined)

	// a latest year without a course map is returned unchanged
	noCourses := history.NewAcademicHistory()
	noCourses.Years["2023-2024"] = history.Year{GradeLevel: 10}
	combined, err = reconciler.Combine(ctx, noCourses, &report.Report{Courses: []report.Course{{CourseName: "X"}}})
	require.NoError(t, err)
	require.Nil(t, combined.Years["2023-2024"].Courses)
}

func TestCombineLatestYearIsLexicographic(t *testing.T) {
	reconciler := NewReconciler(telemetry.NewRecorder())

	h := history.NewAcademicHistory()
	h.Years["2023-2024"] = history.Year{GradeLevel: 10, Courses: map[string]history.CourseHistoryRecord{}}
	h.Years["999-1000"] = history.Year{GradeLevel: 1, Courses: map[string]history.CourseHistoryRecord{}}

	combined, err := reconciler.Combine(context.Background(), h, &report.Report{Courses: []report.Course{
		{CourseID: 1, CourseName: "Reading"},
	}})
	require.NoError(t, err)
	require.Contains(t, combined.Years["999-1000"].Courses, "Reading")
	require.Empty(t, combined.Years["2023-2024"].Courses)
}

func TestCombineNearMissWarning(t *testing.T) {
	rec := telemetry.NewRecorder()
	reconciler := NewReconciler(rec)

	h := history.NewAcademicHistory()
	h.Years["2023-2024"] = history.Year{
		GradeLevel: 10,
		Courses: map[string]history.CourseHistoryRecord{
			"Algebra 1": {CourseName: "Algebra 1", Pr1: "90"},
		},
	}
	combined, err := reconciler.Combine(context.Background(), h, &report.Report{Courses: []report.Course{
		{CourseID: 1, CourseName: "Algebra I"},
		{CourseID: 2, CourseName: "Orchestra"},
	}})
	require.NoError(t, err)

	require.Equal(t, "", combined.Years["2023-2024"].Courses["Algebra I"].Pr1)
	require.Equal(t, 1, rec.Count("warning", report_reconciler_match))
}

func TestMergeScoresSerializeAsStrings(t *testing.T) {
	record := Merge(nil, report.Course{
		CourseID:   100,
		CourseName: "GEOMETRY",
		Semester:   report.Fall,
		Scores: []report.Score{
			{Bucket: "TERM 3", Score: 92},
			{Bucket: "SEM 1", Score: 90.5},
		},
	})

	out, err := json.Marshal(record)
	require.NoError(t, err)
	require.Contains(t, string(out), `"rc1":"92"`)
	require.Contains(t, string(out), `"sm1":"90.5"`)
}
