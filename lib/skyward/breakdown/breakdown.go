// Package breakdown parses the grade info dialog of one course into its weighted categories
// and their assignments.
package breakdown

import (
	"context"
	"math"
	"regexp"
	"skyward-backend/lib/htmlutil"
	"skyward-backend/lib/skyerr"
	"skyward-backend/lib/skyward/session"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("skyward/breakdown")

type Lit struct {
	Name  string  `json:"name" yaml:"name"`
	Begin *string `json:"begin" yaml:"begin"`
	End   *string `json:"end" yaml:"end"`
}

type Points struct {
	Earned float64 `json:"earned" yaml:"earned"`
	Total  float64 `json:"total" yaml:"total"`
}

type MetaType string

const (
	MetaMissing MetaType = "missing"
	MetaNoCount MetaType = "noCount"
	MetaAbsent  MetaType = "absent"
)

type Meta struct {
	Type MetaType `json:"type" yaml:"type"`
	Note string   `json:"note" yaml:"note"`
}

type Assignment struct {
	Date   string   `json:"date" yaml:"date"`
	Name   string   `json:"name" yaml:"name"`
	Grade  *int     `json:"grade" yaml:"grade"`
	Score  *float64 `json:"score" yaml:"score"`
	Points *Points  `json:"points" yaml:"points"`
	Meta   []Meta   `json:"meta" yaml:"meta"`
}

type Category struct {
	Category       string       `json:"category" yaml:"category"`
	Weight         *float64     `json:"weight" yaml:"weight"`
	AdjustedWeight *float64     `json:"adjustedWeight" yaml:"adjustedWeight"`
	Assignments    []Assignment `json:"assignments" yaml:"assignments"`
}

// Breakdown is the content of one course's grade info dialog.
type Breakdown struct {
	Course     string     `json:"course" yaml:"course"`
	Instructor string     `json:"instructor" yaml:"instructor"`
	Lit        Lit        `json:"lit" yaml:"lit"`
	Period     *int       `json:"period" yaml:"period"`
	Score      *float64   `json:"score" yaml:"score"`
	Grade      *int       `json:"grade" yaml:"grade"`
	Gradebook  []Category `json:"gradebook" yaml:"gradebook"`
}

const (
	headingLinks   = "h2.gb_heading a"
	headingPeriod  = "h2.gb_heading span.fXs b"
	litHeader      = "table[id^='grid_stuTermSummaryGrid'] thead th"
	summaryRow     = "table[id^='grid_stuTermSummaryGrid'] tbody tr[class]:not(.sf_Section)"
	assignmentRows = "table[id^='grid_stuAssignmentSummaryGrid'] tbody tr"
)

var (
	intRegex       = regexp.MustCompile(`^-?\d+`)
	floatRegex     = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	litSuffixRegex = regexp.MustCompile(`Grade\s*$`)
	litDatesRegex  = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})\s*-\s*(\d{2}/\d{2}/\d{4})`)
)

// toInt reads the leading integer of text.
func toInt(text string) *int {
	m := intRegex.FindString(htmlutil.Clean(text))
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

// toFloat reads the first number anywhere in text.
func toFloat(text string) *float64 {
	m := floatRegex.FindString(htmlutil.Clean(text))
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}

// firstChildText returns the text of the first child node of sel, falling back to the full
// text of sel when the first child has none.
func firstChildText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	node := sel.Get(0)
	if node.FirstChild != nil {
		if text := htmlutil.GetText(node.FirstChild); text != "" {
			return text
		}
	}
	return sel.Text()
}

func parseLit(doc *goquery.Document) Lit {
	header := doc.Find(litHeader).First()
	name := htmlutil.Clean(firstChildText(header))
	lit := Lit{Name: htmlutil.Clean(litSuffixRegex.ReplaceAllString(name, ""))}
	if m := litDatesRegex.FindStringSubmatch(header.Find("span").First().Text()); m != nil {
		lit.Begin = &m[1]
		lit.End = &m[2]
	}
	return lit
}

func parseSummary(doc *goquery.Document) (*float64, *int) {
	score := toFloat(doc.Find(summaryRow).First().Find("td:last-child").First().Text())
	if score == nil {
		return nil, nil
	}
	grade := int(math.Round(*score))
	return score, &grade
}

// Parse parses a grade info dialog document. The empty dialog payload fails with
// skyerr.ErrSessionInvalid, distinct from a dialog that has zero categories.
func Parse(ctx context.Context, document string) (Breakdown, error) {
	_, span := tracer.Start(ctx, "Parse")
	defer span.End()

	if session.EmptyPayload(document) {
		err := skyerr.New(skyerr.SessionInvalid, "empty grade info payload")
		span.RecordError(err)
		span.SetStatus(codes.Error, "session invalid")
		return Breakdown{}, err
	}

	doc, err := htmlutil.Parse(document)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse grade info html")
		return Breakdown{}, err
	}

	links := doc.Find(headingLinks)
	result := Breakdown{
		Course:     htmlutil.Clean(links.Eq(0).Text()),
		Instructor: htmlutil.Clean(links.Eq(1).Text()),
		Period:     toInt(doc.Find(headingPeriod).First().Text()),
		Lit:        parseLit(doc),
	}
	result.Score, result.Grade = parseSummary(doc)

	w := newWalker()
	doc.Find(assignmentRows).Each(func(_ int, row *goquery.Selection) {
		w.row(row)
	})
	result.Gradebook = w.result()

	span.SetAttributes(
		attribute.String("course", result.Course),
		attribute.Int("categories", len(result.Gradebook)),
	)
	return result, nil
}
