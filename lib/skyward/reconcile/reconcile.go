// Package reconcile merges the current period report into the latest academic history year.
package reconcile

import (
	"context"
	"maps"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/skyward/history"
	"skyward-backend/lib/skyward/report"
	"skyward-backend/lib/telemetry"
	"skyward-backend/lib/textutil"
	"slices"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("skyward/reconcile")

const report_reconciler_match = "reconciler.match"

// BucketSlots maps report buckets to the history slot they fill. Exam buckets are absent,
// exam grades only ever come from history.
var BucketSlots = map[string]history.Slot{
	"TERM 1":  history.PR1,
	"TERM 2":  history.PR2,
	"TERM 3":  history.RC1,
	"TERM 4":  history.PR3,
	"TERM 5":  history.PR4,
	"TERM 6":  history.RC2,
	"TERM 7":  history.PR5,
	"TERM 8":  history.PR6,
	"TERM 9":  history.RC3,
	"TERM 10": history.PR7,
	"TERM 11": history.PR8,
	"TERM 12": history.RC4,
	"SEM 1":   history.SM1,
	"SEM 2":   history.SM2,
}

// fullYearTerms is the terms value of a blank record for a course spanning both semesters.
const fullYearTerms = "1 - 4"

// nearMissSimilarity is the Jaro-Winkler similarity above which an unmatched report course
// is reported as a probable naming mismatch.
const nearMissSimilarity = 0.9

type Reconciler struct {
	tel telemetry.API
}

func NewReconciler(tel telemetry.API) Reconciler {
	assert.NotNil(tel)
	return Reconciler{tel: telemetry.NewScopedAPI("reconcile", tel)}
}

// SlotFor returns the history slot a report bucket fills.
func SlotFor(bucket string) (history.Slot, bool) {
	slot, ok := BucketSlots[bucket]
	if !ok || slot == history.EX1 || slot == history.EX2 {
		return "", false
	}
	return slot, true
}

// formatScore renders a report score the way history slots hold grades, so merged slots
// serialize as strings ("92") like every other slot.
func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func blankRecord(course report.Course) history.CourseHistoryRecord {
	terms := ""
	if course.Semester == report.Both {
		terms = fullYearTerms
	}
	return history.CourseHistoryRecord{Terms: terms}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortedNames(year history.Year) []string {
	return slices.Sorted(maps.Keys(year.Courses))
}

// findCourse returns the course of year whose trimmed, upper cased name equals name's.
// Names are tried in sorted order so a collision resolves deterministically.
func findCourse(year history.Year, name string) (history.CourseHistoryRecord, bool) {
	key := textutil.CourseKey(name)
	for _, candidate := range sortedNames(year) {
		if textutil.CourseKey(candidate) == key {
			return year.Courses[candidate], true
		}
	}
	return history.CourseHistoryRecord{}, false
}

// Merge overlays one report course onto its history baseline, base is nil when the course
// has no history record.
func Merge(base *history.CourseHistoryRecord, course report.Course) history.CourseHistoryRecord {
	var record history.CourseHistoryRecord
	if base != nil {
		record = base.Clone()
	} else {
		record = blankRecord(course)
	}
	record.CourseName = course.CourseName
	record.IsAltTrack = false

	record.CourseID = course.CourseID
	record.Instructor = clonePtr(course.Instructor)
	record.Period = clonePtr(course.Period)
	record.Time = clonePtr(course.Time)

	for _, s := range course.Scores {
		slot, ok := SlotFor(s.Bucket)
		if !ok {
			continue
		}
		record.Set(slot, formatScore(s.Score))
	}

	if base != nil {
		record.Ex1 = base.Ex1
		record.Ex2 = base.Ex2
	}
	return record
}

// Combine returns a copy of hist whose latest year (by lexicographic key order) holds
// exactly the courses of rep merged onto their history records. History courses missing
// from the report are not carried over. hist is never modified.
func (r Reconciler) Combine(ctx context.Context, hist *history.AcademicHistory, rep *report.Report) (*history.AcademicHistory, error) {
	_, span := tracer.Start(ctx, "Combine")
	defer span.End()

	if hist == nil {
		return nil, skyerr.New(skyerr.ReconciliationInputInvalid, "academic history is missing")
	}
	if rep == nil {
		return nil, skyerr.New(skyerr.ReconciliationInputInvalid, "report is missing")
	}

	combined := hist.Clone()
	latest, ok := combined.LatestYear()
	if !ok {
		return combined, nil
	}
	year := combined.Years[latest]
	if year.Courses == nil {
		return combined, nil
	}
	span.SetAttributes(attribute.String("year", latest))

	courses := make(map[string]history.CourseHistoryRecord, len(rep.Courses))
	matched := 0
	for _, course := range rep.Courses {
		base, found := findCourse(year, course.CourseName)
		if found {
			matched++
			courses[course.CourseName] = Merge(&base, course)
			continue
		}
		r.reportNearMiss(year, course.CourseName)
		courses[course.CourseName] = Merge(nil, course)
	}

	combined.Years[latest] = history.Year{GradeLevel: year.GradeLevel, Courses: courses}
	span.SetAttributes(
		attribute.Int("courses", len(courses)),
		attribute.Int("matched", matched),
	)
	return combined, nil
}

func (r Reconciler) reportNearMiss(year history.Year, name string) {
	best, similarity, ok := textutil.Closest(name, sortedNames(year))
	if !ok || similarity < nearMissSimilarity {
		return
	}
	r.tel.ReportWarning(
		report_reconciler_match,
		"report course has no exact history match",
		"course", name,
		"closest", best,
		"similarity", similarity,
	)
}
