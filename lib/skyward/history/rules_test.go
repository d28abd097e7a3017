package history

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnsLayout(t *testing.T) {
	require.Equal(t, [16]Slot{
		"pr1", "pr2", "rc1", "pr3", "pr4", "rc2", "ex1", "sm1",
		"pr5", "pr6", "rc3", "pr7", "pr8", "rc4", "ex2", "sm2",
	}, Columns)
}

func TestParseHeader(t *testing.T) {
	testCases := []struct {
		text     string
		expected Header
		ok       bool
	}{
		{text: "2022 - 2023 Vista High School Grade 9", expected: Header{Begin: "2022", End: "2023", GradeLevel: 9}, ok: true},
		{text: "2023-2024 (Grade 10)", expected: Header{Begin: "2023", End: "2024", GradeLevel: 10}, ok: true},
		{text: "2023 - 2024 Grade", ok: false},
		{text: "Algebra I", ok: false},
		{text: "", ok: false},
	}

	for _, test := range testCases {
		t.Run(test.text, func(t *testing.T) {
			header, ok := ParseHeader(test.text)
			require.Equal(t, test.ok, ok)
			require.Equal(t, test.expected, header)
		})
	}
	require.Equal(t, "2022-2023", Header{Begin: "2022", End: "2023"}.Key())
}

func TestExcluded(t *testing.T) {
	testCases := []struct {
		name     string
		excluded bool
	}{
		{"Class", true},
		{"class", true},
		{"Terms", true},
		{" Terms ", true},
		{"2022 - 2023 Grade 9", true},
		{"PR1", true},
		{"rc4", true},
		{"EX2", true},
		{"SM1", true},
		{"", true},
		{"   ", true},
		{"LUNCH A", true},
		{"Lunch", true},
		{"Algebra I", false},
		{"Classical Music", false},
		{"PR Writing", false},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.excluded, Excluded(test.name))
		})
	}
}

func TestValid(t *testing.T) {
	testCases := []struct {
		desc    string
		name    string
		columns []string
		valid   bool
	}{
		{desc: "terms row without grades", name: "Terms", columns: []string{"Terms", "PR1", "PR2"}, valid: false},
		{desc: "letter grade", name: "Algebra I", columns: []string{"Algebra I", "1 - 4", "B+"}, valid: true},
		{desc: "numeric grade", name: "Biology", columns: []string{"Biology", "", "97"}, valid: true},
		{desc: "pass grade", name: "Study Hall", columns: []string{"Study Hall", "", "P"}, valid: true},
		{desc: "lowercase letter is not a grade", name: "Art", columns: []string{"Art", "", "a"}, valid: false},
		{desc: "no grades", name: "Chemistry", columns: []string{"Chemistry", "", "", "NG"}, valid: false},
		{desc: "excluded even with grades", name: "LUNCH", columns: []string{"LUNCH", "", "A"}, valid: false},
		{desc: "empty name", name: "", columns: []string{"", "", "A"}, valid: false},
	}

	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			require.Equal(t, test.valid, Valid(test.name, test.columns))
		})
	}
}

func TestIsAltTrack(t *testing.T) {
	require.False(t, IsAltTrack(`<td><a href="#" id="showGrade">Algebra I</a></td>`))
	require.False(t, IsAltTrack(`<a>Algebra I</a>`))
	require.True(t, IsAltTrack(`<td>PE Waiver</td>`))
	require.True(t, IsAltTrack(`<td><abbr>PE</abbr></td>`))
	require.False(t, IsAltTrack(""))
}

func TestFinalGrade(t *testing.T) {
	str := func(s string) *string { return &s }

	testCases := []struct {
		desc     string
		record   CourseHistoryRecord
		expected string
	}{
		{desc: "sm1 over rc4", record: CourseHistoryRecord{Sm1: str("A"), Rc4: "B"}, expected: "A"},
		{desc: "sm2 over sm1", record: CourseHistoryRecord{Sm1: str("A"), Sm2: str("B")}, expected: "B"},
		{desc: "rc fallback", record: CourseHistoryRecord{Rc1: "90", Rc3: "85"}, expected: "85"},
		{desc: "nothing", record: CourseHistoryRecord{Pr1: "99"}, expected: ""},
	}

	for _, test := range testCases {
		t.Run(test.desc, func(t *testing.T) {
			require.Equal(t, test.expected, test.record.ComputeFinalGrade())
		})
	}
}

func TestSlots(t *testing.T) {
	var record CourseHistoryRecord
	for i, s := range Columns {
		record.Set(s, string(rune('a'+i)))
	}
	for i, s := range Columns {
		require.Equal(t, string(rune('a'+i)), record.Get(s), s)
	}

	record.Set(SM1, "")
	require.Nil(t, record.Sm1)
	require.Equal(t, "", record.Get(SM1))

	record.Set(Slot("unknown"), "x")
	require.Equal(t, "", record.Get(Slot("unknown")))
}
