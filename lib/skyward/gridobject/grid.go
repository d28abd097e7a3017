package gridobject

import (
	"fmt"
	"regexp"
	"skyward-backend/lib/skyerr"
	"slices"
	"strconv"
)

// Key families of the tables this module reads, matched by pattern since the numeric
// suffixes are session-local.
var (
	// GradesGrid is the active gradebook (`stuGradesGrid_<id>_<id>`).
	GradesGrid = regexp.MustCompile(`stuGradesGrid_\d+_\d+`)
	// HistoryGrid is the multi-year academic history (`gradeGrid_<id>_<id>_<id>`).
	HistoryGrid = regexp.MustCompile(`gradeGrid_\d+_\d+_\d+`)
	// TermGrid is the academic history term listing (`ahGrid_<id>_<id>`).
	TermGrid = regexp.MustCompile(`ahGrid_\d+_\d+`)
)

type Cell struct {
	// Markup is an html fragment that consumers parse themselves.
	Markup string
	// Text is already plain text.
	Text string
	// Attributes holds every other field of the cell (ex. `cId`).
	Attributes map[string]any
}

// Attr returns a cell attribute rendered as a string.
func (c Cell) Attr(name string) (string, bool) {
	v, ok := c.Attributes[name]
	if !ok || v == nil {
		return "", false
	}
	return scalarString(v), true
}

type Row struct {
	// Markup is the row's own html (usually an opening <tr> carrying attributes).
	Markup     string
	Cells      []Cell
	Attributes map[string]any
}

// Empty reports a structurally empty row, which every consumer skips.
func (r Row) Empty() bool {
	return len(r.Cells) == 0
}

type Table struct {
	Key  string
	Rows []Row
}

func scalarString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func toCell(value any) Cell {
	cell := Cell{Attributes: map[string]any{}}
	fields, ok := value.(map[string]any)
	if !ok {
		// some grids inline a bare scalar instead of a cell object
		cell.Text = scalarString(value)
		return cell
	}
	for k, v := range fields {
		switch k {
		case "h":
			cell.Markup = scalarString(v)
		case "d":
			cell.Text = scalarString(v)
		default:
			cell.Attributes[k] = v
		}
	}
	return cell
}

func toRow(value any) Row {
	row := Row{Attributes: map[string]any{}}
	fields, ok := value.(map[string]any)
	if !ok {
		return row
	}
	for k, v := range fields {
		switch k {
		case "h":
			row.Markup = scalarString(v)
		case "c":
			cells, _ := v.([]any)
			row.Cells = make([]Cell, 0, len(cells))
			for _, c := range cells {
				row.Cells = append(row.Cells, toCell(c))
			}
		default:
			row.Attributes[k] = v
		}
	}
	return row
}

// ToTable converts the raw value stored under key into a Table, values that carry no
// `tb.r` rows fail with skyerr.ErrEmptyTable.
func ToTable(key string, value any) (Table, error) {
	grid, ok := value.(map[string]any)
	if !ok {
		return Table{}, skyerr.New(skyerr.EmptyTable, fmt.Sprintf("%s is not a grid", key))
	}
	body, ok := grid["tb"].(map[string]any)
	if !ok {
		return Table{}, skyerr.New(skyerr.EmptyTable, fmt.Sprintf("%s has no table body", key))
	}
	rawRows, _ := body["r"].([]any)
	if len(rawRows) == 0 {
		return Table{}, skyerr.New(skyerr.EmptyTable, fmt.Sprintf("%s has no rows", key))
	}

	table := Table{Key: key, Rows: make([]Row, len(rawRows))}
	for i, r := range rawRows {
		table.Rows[i] = toRow(r)
	}
	return table, nil
}

// Keys returns every key of obj matching pattern in sorted order.
func (obj GridObject) Keys(pattern *regexp.Regexp) []string {
	var keys []string
	for k := range obj {
		if pattern.MatchString(k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}

// FindTable returns the first table (by sorted key) whose key matches pattern.
func FindTable(obj GridObject, pattern *regexp.Regexp) (Table, error) {
	keys := obj.Keys(pattern)
	if len(keys) == 0 {
		return Table{}, skyerr.New(
			skyerr.GridKeyNotFound,
			fmt.Sprintf("no key matches %s", pattern.String()),
		)
	}
	return ToTable(keys[0], obj[keys[0]])
}

// FindTables returns every non-empty table whose key matches pattern, in sorted key order.
// It fails with skyerr.ErrEmptyTable only when every matching table is empty.
func FindTables(obj GridObject, pattern *regexp.Regexp) ([]Table, error) {
	keys := obj.Keys(pattern)
	if len(keys) == 0 {
		return nil, skyerr.New(
			skyerr.GridKeyNotFound,
			fmt.Sprintf("no key matches %s", pattern.String()),
		)
	}

	var tables []Table
	var lastErr error
	for _, k := range keys {
		table, err := ToTable(k, obj[k])
		if err != nil {
			lastErr = err
			continue
		}
		tables = append(tables, table)
	}
	if len(tables) == 0 {
		return nil, lastErr
	}
	return tables, nil
}
