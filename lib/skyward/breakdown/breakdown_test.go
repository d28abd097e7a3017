package breakdown

import (
	"context"
	"fmt"
	"skyward-backend/lib/skyerr"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func categoryRow(name string, bold bool, annotation string) string {
	style := ""
	if bold {
		style = ` style="font-weight:bold"`
	}
	span := ""
	if annotation != "" {
		span = fmt.Sprintf(`<span class="fXs fIl">(%s)</span>`, annotation)
	}
	return fmt.Sprintf(
		`<tr class="sf_Section cat"><td></td><td%s>%s %s</td><td>93</td><td>93.10</td></tr>`,
		style, name, span,
	)
}

func assignmentRow(date, name, grade, score, points string, tooltips ...string) string {
	cells := []string{
		fmt.Sprintf(`<td>%s</td>`, date),
		fmt.Sprintf(`<td><a id="showAssignmentInfo" href="javascript:void(0)">%s</a></td>`, name),
		fmt.Sprintf(`<td>%s</td>`, grade),
		fmt.Sprintf(`<td>%s</td>`, score),
		fmt.Sprintf(`<td>%s</td>`, points),
	}
	for _, tooltip := range tooltips {
		if tooltip == "" {
			cells = append(cells, `<td></td>`)
			continue
		}
		cells = append(cells, fmt.Sprintf(`<td tooltip="%s">*</td>`, tooltip))
	}
	return `<tr class="odd">` + strings.Join(cells, "") + `</tr>`
}

func gradeInfoDocument(rows ...string) string {
	return `<div>
<h2 class="gb_heading"><a href="#">ALGEBRA II</a> <span class="fXs">(Period <b>3</b>)</span>
	<a href="#">Smith,&nbsp;Jane</a></h2>
<table id="grid_stuTermSummaryGrid_123">
	<thead><tr><th>PR1 Grade <span>(08/12/2024 - 09/13/2024)</span></th></tr></thead>
	<tbody>
		<tr class="sf_Section"><td>ignored</td><td>1</td></tr>
		<tr class="odd"><td>PR1</td><td>91.6%</td></tr>
	</tbody>
</table>
<table id="grid_stuAssignmentSummaryGrid_123"><tbody>` + strings.Join(rows, "\n") + `</tbody></table>
</div>`
}

func ptr[T any](v T) *T { return &v }

func TestParseHeading(t *testing.T) {
	result, err := Parse(context.Background(), gradeInfoDocument())
	require.NoError(t, err)

	require.Equal(t, "ALGEBRA II", result.Course)
	require.Equal(t, "Smith, Jane", result.Instructor)
	require.Equal(t, ptr(3), result.Period)
	require.Equal(t, Lit{Name: "PR1", Begin: ptr("08/12/2024"), End: ptr("09/13/2024")}, result.Lit)
	require.Equal(t, ptr(91.6), result.Score)
	require.Equal(t, ptr(92), result.Grade)
	require.Empty(t, result.Gradebook)
}

func TestParseRC1Weight(t *testing.T) {
	document := gradeInfoDocument(
		categoryRow("Major", true, ""),
		categoryRow("RC1", false, "weighted at 40.00%, adjusted to 35.00%"),
		categoryRow("RC2", false, "weighted at 60.00%"),
		assignmentRow("09/01/24", "Test 1", "88", "88.0", "88 out of 100"),
	)
	result, err := Parse(context.Background(), document)
	require.NoError(t, err)

	expected := []Category{{
		Category:       "Major",
		Weight:         ptr(40.0),
		AdjustedWeight: ptr(35.0),
		Assignments: []Assignment{{
			Date:   "09/01/24",
			Name:   "Test 1",
			Grade:  ptr(88),
			Score:  ptr(88.0),
			Points: &Points{Earned: 88, Total: 100},
			Meta:   []Meta{},
		}},
	}}
	if diff := cmp.Diff(expected, result.Gradebook); diff != "" {
		t.Fatalf("gradebook (-want +got):\n%s", diff)
	}
}

func TestParseWeightPrecedence(t *testing.T) {
	testCases := []struct {
		desc             string
		rows             []string
		weight, adjusted *float64
	}{
		{
			desc: "inline weight wins over rc rows",
			rows: []string{
				categoryRow("Major", true, "weighted at 70.00%"),
				categoryRow("RC1", false, "weighted at 40.00%"),
			},
			weight: ptr(70.0),
		},
		{
			desc: "rc2 before rc1, rc1 weight wins",
			rows: []string{
				categoryRow("Major", true, ""),
				categoryRow("RC2", false, "weighted at 60.00%"),
				categoryRow("RC1", false, "weighted at 40.00%"),
			},
			weight: ptr(40.0),
		},
		{
			desc: "rc2 before an unweighted rc1",
			rows: []string{
				categoryRow("Major", true, ""),
				categoryRow("RC2", false, "weighted at 60.00%, adjusted to 55.00%"),
				categoryRow("RC1", false, ""),
			},
			weight:   ptr(60.0),
			adjusted: ptr(55.0),
		},
		{
			desc: "rc2 alone never applies",
			rows: []string{
				categoryRow("Major", true, ""),
				categoryRow("RC2", false, "weighted at 60.00%"),
			},
		},
		{
			desc: "rc rows after an assignment still belong to the parent",
			rows: []string{
				categoryRow("Major", true, ""),
				assignmentRow("09/01/24", "Quiz", "90", "90", ""),
				categoryRow("RC1", false, "weighted at 25.00%"),
			},
			weight: ptr(25.0),
		},
	}

	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			result, err := Parse(context.Background(), gradeInfoDocument(test.rows...))
			require.NoError(t, err)
			require.Len(t, result.Gradebook, 1)
			require.Equal(t, "Major", result.Gradebook[0].Category)
			require.Equal(t, test.weight, result.Gradebook[0].Weight)
			require.Equal(t, test.adjusted, result.Gradebook[0].AdjustedWeight)
		})
	}
}

func TestParseCategories(t *testing.T) {
	document := gradeInfoDocument(
		assignmentRow("08/20/24", "Orphan", "100", "100", ""),
		categoryRow("Daily", false, "weighted at 30.00%"),
		assignmentRow("08/21/24", "Warmup", "95", "95.0", "9.5 out of 10",
			"<b>Missing</b> &amp; late", "", "Absent 08/21"),
		assignmentRow("08/22/24", "Homework", "*", "", "out of 10"),
		categoryRow("Extra Credit", false, "weighted at 0.00%"),
		categoryRow("Projects", false, "weighted at 0.00%"),
		assignmentRow("08/30/24", "Poster", "80", "80", "8 out of 10", "", "Excluded"),
		categoryRow("RC3", false, ""),
	)
	result, err := Parse(context.Background(), document)
	require.NoError(t, err)

	expected := []Category{
		{
			Category: "Daily",
			Weight:   ptr(30.0),
			Assignments: []Assignment{
				{
					Date:   "08/21/24",
					Name:   "Warmup",
					Grade:  ptr(95),
					Score:  ptr(95.0),
					Points: &Points{Earned: 9.5, Total: 10},
					Meta: []Meta{
						{Type: MetaMissing, Note: "Missing & late"},
						{Type: MetaAbsent, Note: "Absent 08/21"},
					},
				},
				{
					Date: "08/22/24",
					Name: "Homework",
					Meta: []Meta{},
				},
			},
		},
		{
			Category: "Projects",
			Weight:   ptr(0.0),
			Assignments: []Assignment{{
				Date:   "08/30/24",
				Name:   "Poster",
				Grade:  ptr(80),
				Score:  ptr(80.0),
				Points: &Points{Earned: 8, Total: 10},
				Meta:   []Meta{{Type: MetaNoCount, Note: "Excluded"}},
			}},
		},
		// an rc row not following a bold parent is an ordinary category
		{
			Category:    "RC3",
			Assignments: []Assignment{},
		},
	}
	if diff := cmp.Diff(expected, result.Gradebook); diff != "" {
		t.Fatalf("gradebook (-want +got):\n%s", diff)
	}
}

func TestParseSessionInvalid(t *testing.T) {
	_, err := Parse(context.Background(), "<data><![CDATA[\n]]></data>")
	require.ErrorIs(t, err, skyerr.ErrSessionInvalid)

	result, err := Parse(context.Background(), "<div></div>")
	require.NoError(t, err)
	require.Empty(t, result.Gradebook)
	require.Nil(t, result.Score)
	require.Nil(t, result.Grade)
	require.Nil(t, result.Period)
}
