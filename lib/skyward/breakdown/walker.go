package breakdown

import (
	"html"
	"regexp"
	"skyward-backend/lib/htmlutil"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

var (
	weightRegex = regexp.MustCompile(`(?i)weighted at ([\d.]+)%(?:, adjusted to ([\d.]+)%)?`)
	rcRegex     = regexp.MustCompile(`(?i)RC\d`)
	rc1Regex    = regexp.MustCompile(`(?i)RC1`)
	rc2Regex    = regexp.MustCompile(`(?i)RC2`)
	boldRegex   = regexp.MustCompile(`(?i)font-weight\s*:\s*bold`)
	pointsRegex = regexp.MustCompile(`(?i)(-?\d+(?:\.\d+)?)\s*out of\s*(-?\d+(?:\.\d+)?)`)
)

const (
	assignmentLink = "a#showAssignmentInfo"
	tooltipAttr    = "tooltip"
)

// metaCells maps the cell index of an assignment row to the flag its tooltip carries.
var metaCells = []struct {
	index int
	kind  MetaType
}{
	{5, MetaMissing},
	{6, MetaNoCount},
	{7, MetaAbsent},
}

// tooltips carry markup, notes keep only their text
var notePolicy = bluemonday.StrictPolicy()

func sanitizeNote(tooltip string) string {
	return htmlutil.Clean(html.UnescapeString(notePolicy.Sanitize(tooltip)))
}

type weight struct {
	weight   *float64
	adjusted *float64
}

func parseNumber(text string) *float64 {
	m := floatRegex.FindString(text)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseWeight reads the first "weighted at X%[, adjusted to Y%]" annotation among the spans
// of cell.
func parseWeight(cell *goquery.Selection) (weight, bool) {
	var found weight
	ok := false
	cell.Find("span").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		m := weightRegex.FindStringSubmatch(htmlutil.Clean(span.Text()))
		if m == nil {
			return true
		}
		found = weight{weight: parseNumber(m[1])}
		if m[2] != "" {
			found.adjusted = parseNumber(m[2])
		}
		ok = true
		return false
	})
	return found, ok
}

func (c *Category) setWeight(w weight) {
	c.Weight = w.weight
	c.AdjustedWeight = w.adjusted
}

// walker holds the state of the assignment grid walk. A bold category row is a parent, the
// RC rows right after it only lend the parent their weight.
type walker struct {
	categories  []*Category
	current     *Category
	parent      *Category
	afterParent bool
	// pending is an RC2 weight seen before the RC1 row of the same parent.
	pending *weight
}

func newWalker() *walker {
	return &walker{}
}

func (w *walker) row(row *goquery.Selection) {
	if row.HasClass("sf_Section") && row.HasClass("cat") {
		w.category(row)
		return
	}
	w.assignment(row)
}

func (w *walker) category(row *goquery.Selection) {
	cell := row.Find("td").Eq(1)
	name := htmlutil.Clean(firstChildText(cell))
	bold := boldRegex.MatchString(cell.AttrOr("style", ""))
	wt, hasWeight := parseWeight(cell)

	if bold {
		parent := &Category{Category: name, Assignments: []Assignment{}}
		if hasWeight {
			parent.setWeight(wt)
		}
		w.categories = append(w.categories, parent)
		w.parent = parent
		w.current = parent
		w.afterParent = true
		w.pending = nil
		return
	}

	if rcRegex.MatchString(name) && w.afterParent {
		w.inheritWeight(name, wt, hasWeight)
		return
	}

	category := &Category{Category: name, Assignments: []Assignment{}}
	if hasWeight {
		category.setWeight(wt)
	}
	w.categories = append(w.categories, category)
	w.current = category
	w.afterParent = false
}

// inheritWeight applies the weight of an RC row to the parent when the parent has none yet.
// An RC1 weight is taken directly, an RC2 weight waits for the RC1 row and is used only when
// that row carries no weight of its own.
func (w *walker) inheritWeight(name string, wt weight, hasWeight bool) {
	if w.parent == nil || w.parent.Weight != nil {
		return
	}
	rc1 := rc1Regex.MatchString(name)
	switch {
	case rc1 && hasWeight:
		w.parent.setWeight(wt)
		w.pending = nil
	case rc2Regex.MatchString(name) && hasWeight:
		w.pending = &wt
	case rc1 && w.pending != nil:
		w.parent.setWeight(*w.pending)
		w.pending = nil
	}
}

func (w *walker) assignment(row *goquery.Selection) {
	link := row.Find(assignmentLink).First()
	if link.Length() == 0 || w.current == nil {
		return
	}
	cells := row.Find("td")

	assignment := Assignment{
		Date:  htmlutil.Clean(cells.Eq(0).Text()),
		Name:  htmlutil.Clean(link.Text()),
		Grade: toInt(cells.Eq(2).Text()),
		Score: toFloat(cells.Eq(3).Text()),
		Meta:  []Meta{},
	}
	if m := pointsRegex.FindStringSubmatch(htmlutil.Clean(cells.Eq(4).Text())); m != nil {
		earned, total := parseNumber(m[1]), parseNumber(m[2])
		if earned != nil && total != nil {
			assignment.Points = &Points{Earned: *earned, Total: *total}
		}
	}
	for _, mc := range metaCells {
		tooltip := cells.Eq(mc.index).AttrOr(tooltipAttr, "")
		if tooltip == "" {
			continue
		}
		assignment.Meta = append(assignment.Meta, Meta{Type: mc.kind, Note: sanitizeNote(tooltip)})
	}
	w.current.Assignments = append(w.current.Assignments, assignment)
}

// result returns the categories in document order, dropping those weighted at zero that
// hold no assignments.
func (w *walker) result() []Category {
	out := make([]Category, 0, len(w.categories))
	for _, c := range w.categories {
		if c.Weight != nil && *c.Weight == 0 && len(c.Assignments) == 0 {
			continue
		}
		out = append(out, *c)
	}
	return out
}
