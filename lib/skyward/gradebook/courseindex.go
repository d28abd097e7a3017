package gradebook

import (
	"context"
	"skyward-backend/lib/assert"
	"skyward-backend/lib/htmlutil"
	"skyward-backend/lib/telemetry"
	"skyward-backend/lib/textutil"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
)

const report_course_index_resolve = "course-index.resolve"

// CourseIndex memoizes grouping id -> course name resolution. An entry, once written (even
// as an empty string for a miss), is never rescanned until Clear is called.
//
// It is safe for concurrent use, two goroutines racing on the same key both scan and the
// first write wins.
type CourseIndex struct {
	tel   telemetry.API
	mutex sync.RWMutex
	names map[string]string
	scans atomic.Int64
}

func NewCourseIndex(tel telemetry.API) *CourseIndex {
	assert.NotNil(tel)
	return &CourseIndex{
		tel:   tel,
		names: map[string]string{},
	}
}

func (c *CourseIndex) lookup(groupingId string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	name, ok := c.names[groupingId]
	return name, ok
}

// Resolve returns the course name for a grouping id, scanning tables (usually every table of
// the gradebook document) on a cache miss. A table matches when its normalized id contains the
// normalized grouping id, the first non-empty link text inside it is the name.
func (c *CourseIndex) Resolve(ctx context.Context, groupingId string, tables *goquery.Selection) string {
	if name, ok := c.lookup(groupingId); ok {
		return name
	}

	c.scans.Add(1)
	name := scanTables(ctx, textutil.NormalizeID(groupingId), tables)

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if existing, ok := c.names[groupingId]; ok {
		return existing
	}
	c.names[groupingId] = name
	if name == "" {
		c.tel.ReportWarning(report_course_index_resolve, "course name not found", groupingId)
	}
	return name
}

func scanTables(ctx context.Context, normalizedId string, tables *goquery.Selection) string {
	name := ""
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		tableId := textutil.NormalizeID(table.AttrOr("id", ""))
		if !strings.Contains(tableId, normalizedId) {
			return true
		}
		name = htmlutil.FirstAnchorName(ctx, table)
		return name == ""
	})
	return name
}

// Scans returns how many times the underlying table scan ran.
func (c *CourseIndex) Scans() int64 {
	return c.scans.Load()
}

func (c *CourseIndex) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.names)
}

// Clear drops every memoized entry, the next Resolve of any key scans again.
func (c *CourseIndex) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.names = map[string]string{}
}
