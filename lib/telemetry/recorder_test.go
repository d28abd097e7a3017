package telemetry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedRecorder(t *testing.T) {
	rec := NewRecorder()
	tel := NewScopedAPI("gradebook", rec)

	tel.ReportWarning("course-index.resolve", "stu_1")
	tel.ReportWarning("course-index.resolve", "stu_2")
	tel.ReportBroken("parser.parse")
	tel.ReportCount("rows", 3)

	require.Equal(t, 2, rec.Count("warning", "course-index.resolve"))
	require.Equal(t, 1, rec.Count("broken", "parser.parse"))
	require.Equal(t, 0, rec.Count("broken", "course-index.resolve"))

	reports := rec.Reports()
	require.Len(t, reports, 4)
	require.Equal(t, "gradebook: course-index.resolve", reports[0].ID)
	require.Equal(t, []any{int64(3)}, reports[3].Params)
}

func TestSlogAttrs(t *testing.T) {
	attrs := SlogAPI{}.attrs(
		[]any{errors.New("first"), "page", errors.New("second")},
		"id", "client.fetch",
	)
	require.Equal(t, []any{
		"id", "client.fetch",
		"err", "first",
		"params.1", "page",
		"err.1", "second",
	}, attrs)
}
