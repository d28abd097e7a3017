// Package gridobject recovers the `sf_gridObjects` data literal that Skyward pages embed in an
// inline script and exposes it as a generic table/row/cell model.
package gridobject

import (
	"context"
	"fmt"
	"regexp"
	"skyward-backend/lib/htmlutil"
	"skyward-backend/lib/skyerr"
	"strings"

	"github.com/titanous/json5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("skyward/gridobject")

// GridObject maps a document-local key (`<kind>_<id1>_<id2>[_<id3>]`) to a scalar,
// nested object, or table value.
type GridObject map[string]any

// matches `sff.sv('sf_gridObjects', $.extend(` up to the opening paren of the extend call,
// the arguments are then walked by the scanner since they may nest arbitrarily.
var sentinelRegex = regexp.MustCompile(`sff\.sv\(\s*['"]sf_gridObjects['"]\s*,\s*\$\.extend\(`)

const sentinelKey = "sf_gridObjects"

// findLiterals returns the source of every object literal passed as the second argument of
// an `sff.sv('sf_gridObjects', $.extend(<existing>, <literal>))` call in src.
func findLiterals(src string) []string {
	var literals []string
	for _, loc := range sentinelRegex.FindAllStringIndex(src, -1) {
		argsStart := loc[1]
		comma := topLevelComma(src, argsStart)
		if comma < 0 {
			continue
		}
		start := comma + 1
		for start < len(src) && isSpace(src[start]) {
			start++
		}
		if start >= len(src) || src[start] != '{' {
			continue
		}
		end := balancedEnd(src, start)
		if end < 0 {
			// unterminated literal, hand everything to the parser so it reports the failure
			literals = append(literals, src[start:])
			continue
		}
		literals = append(literals, src[start:end])
	}
	return literals
}

// scriptSources returns the contents of every inline script mentioning the sentinel key,
// falling back to the raw document when no script does (ex. a bare script fragment).
func scriptSources(document string) []string {
	doc, err := htmlutil.Parse(document)
	if err == nil {
		var sources []string
		for _, script := range doc.Find("script").Nodes {
			text := htmlutil.GetText(script)
			if strings.Contains(text, sentinelKey) {
				sources = append(sources, text)
			}
		}
		if len(sources) > 0 {
			return sources
		}
	}
	return []string{document}
}

// ParseLiteral parses a JS object literal (unquoted keys, single or double quotes,
// trailing commas, `\xHH` escapes) without ever evaluating it.
func ParseLiteral(literal string) (GridObject, error) {
	var out map[string]any
	err := json5.Unmarshal([]byte(normalizeLiteral(literal)), &out)
	if err != nil {
		return nil, skyerr.Wrap(skyerr.ExtractionParseFailure, "malformed grid object literal", err)
	}
	if out == nil {
		return nil, skyerr.New(skyerr.ExtractionParseFailure, "grid object literal is null")
	}
	return GridObject(out), nil
}

// Extract locates and parses the embedded grid object of a document.
//
// A document without the assignment yields skyerr.ErrExtractionNotFound, a document whose
// literal is malformed yields skyerr.ErrExtractionParseFailure. When the page assigns the
// grid objects more than once the literals are merged in order, the same way the page's
// own `$.extend` calls accumulate them.
func Extract(ctx context.Context, document string) (GridObject, error) {
	_, span := tracer.Start(ctx, "Extract")
	defer span.End()

	if !strings.Contains(document, sentinelKey) {
		return nil, skyerr.New(skyerr.ExtractionNotFound, "no sf_gridObjects assignment")
	}

	var literals []string
	for _, src := range scriptSources(document) {
		literals = append(literals, findLiterals(src)...)
	}
	if len(literals) == 0 {
		return nil, skyerr.New(skyerr.ExtractionNotFound, "no sf_gridObjects assignment")
	}
	span.SetAttributes(attribute.Int("literals", len(literals)))

	merged := GridObject{}
	for i, literal := range literals {
		obj, err := ParseLiteral(literal)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("failed to parse literal %d", i))
			return nil, err
		}
		for k, v := range obj {
			merged[k] = v
		}
	}
	return merged, nil
}
