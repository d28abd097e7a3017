package gradestore

import (
	"fmt"
	"maps"
	"skyward-backend/lib/skyward/gradebook"
	"slices"
)

type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
	Changed ChangeKind = "changed"
)

// Change is a difference of one course bucket between two records.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Course string     `json:"course"`
	Bucket string     `json:"bucket"`
	Before string     `json:"before,omitempty"`
	After  string     `json:"after,omitempty"`
}

func (c Change) String() string {
	switch c.Kind {
	case Added:
		return fmt.Sprintf("%s %s: %s (new)", c.Course, c.Bucket, c.After)
	case Removed:
		return fmt.Sprintf("%s %s: %s (removed)", c.Course, c.Bucket, c.Before)
	}
	return fmt.Sprintf("%s %s: %s -> %s", c.Course, c.Bucket, c.Before, c.After)
}

func courseNames(records ...gradebook.CourseRecord) []string {
	names := map[string]struct{}{}
	for _, record := range records {
		for name := range record {
			names[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(names))
}

// Diff lists the bucket grades that differ between prev and next, ordered by course then
// bucket. A nil prev reports every grade of next as added.
func Diff(prev, next gradebook.CourseRecord) []Change {
	var changes []Change
	for _, course := range courseNames(prev, next) {
		before := prev[course]
		after := next[course]

		buckets := map[string]struct{}{}
		for bucket := range before {
			buckets[bucket] = struct{}{}
		}
		for bucket := range after {
			buckets[bucket] = struct{}{}
		}

		for _, bucket := range slices.Sorted(maps.Keys(buckets)) {
			old, hadOld := before[bucket]
			cur, hasCur := after[bucket]
			switch {
			case !hadOld:
				changes = append(changes, Change{Kind: Added, Course: course, Bucket: bucket, After: cur})
			case !hasCur:
				changes = append(changes, Change{Kind: Removed, Course: course, Bucket: bucket, Before: old})
			case old != cur:
				changes = append(changes, Change{Kind: Changed, Course: course, Bucket: bucket, Before: old, After: cur})
			}
		}
	}
	return changes
}
