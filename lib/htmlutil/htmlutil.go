package htmlutil

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var tracer = otel.Tracer("skyward.lib.htmlutil")

// GetText concatenates every text node under node, entities are already decoded by the parser.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s+`)

// Clean replaces non-breaking spaces, collapses whitespace runs and trims.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// Parse parses a document or a markup fragment.
func Parse(markup string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(markup))
}

// MustParse is Parse for markup that comes out of an already parsed grid object,
// x/net/html never fails on string input so an error here is a programming error.
func MustParse(markup string) *goquery.Document {
	doc, err := Parse(markup)
	if err != nil {
		panic(err)
	}
	return doc
}

var leadingTag = regexp.MustCompile(`^\s*<\s*([a-zA-Z]+)`)

// fragmentContext picks the element a fragment would legally live in, a bare <tr> or <td>
// parsed in a body context loses its element entirely.
func fragmentContext(markup string) *html.Node {
	parent := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	m := leadingTag.FindStringSubmatch(markup)
	if len(m) < 2 {
		return parent
	}
	switch strings.ToLower(m[1]) {
	case "tr":
		parent.Data, parent.DataAtom = "tbody", atom.Tbody
	case "td", "th":
		parent.Data, parent.DataAtom = "tr", atom.Tr
	case "tbody", "thead", "tfoot", "caption", "colgroup":
		parent.Data, parent.DataAtom = "table", atom.Table
	}
	return parent
}

// ParseFragment parses a markup fragment (such as a grid cell or row) into a document whose
// root holds the fragment's top level nodes.
func ParseFragment(markup string) *goquery.Document {
	root := &html.Node{Type: html.DocumentNode}
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext(markup))
	if err != nil {
		// only reader errors are possible, and a strings.Reader never fails
		panic(err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return goquery.NewDocumentFromNode(root)
}

// Text returns the trimmed plain text of a markup fragment.
func Text(markup string) string {
	if markup == "" {
		return ""
	}
	return strings.TrimSpace(GetText(ParseFragment(markup).Get(0)))
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors returns the cleaned text and href of every node in the selection.
func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	_, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		for _, a := range n.Attr {
			if a.Key == "href" {
				href = a.Val
				break
			}
		}

		name := Clean(removeNonPrintable(GetText(n)))
		anchors = append(anchors, Anchor{
			Name: name,
			Href: href,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("href", href),
		))
	}

	return anchors
}

// FirstAnchorName returns the first non-empty anchor text inside sel.
func FirstAnchorName(ctx context.Context, sel *goquery.Selection) string {
	for _, a := range GetAnchors(ctx, sel.Find("a")) {
		if a.Name != "" {
			return a.Name
		}
	}
	return ""
}
