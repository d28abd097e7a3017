// Package history condenses the academic history grids into per-year course records.
package history

import (
	"encoding/json"
	"maps"
	"slices"
)

// CourseHistoryRecord is one course of one academic year. Sm1 and Sm2 are nil when the
// semester grade is blank, every other grade column is an empty string instead.
//
// CourseID, Instructor, Period and Time are only set on records that went through
// reconciliation with the current report.
type CourseHistoryRecord struct {
	CourseName string `json:"-" yaml:"-"`
	IsAltTrack bool   `json:"-" yaml:"-"`

	Terms      string  `json:"terms" yaml:"terms"`
	FinalGrade string  `json:"finalGrade" yaml:"finalGrade"`
	Sm1        *string `json:"sm1" yaml:"sm1"`
	Sm2        *string `json:"sm2" yaml:"sm2"`
	Pr1        string  `json:"pr1" yaml:"pr1"`
	Pr2        string  `json:"pr2" yaml:"pr2"`
	Pr3        string  `json:"pr3" yaml:"pr3"`
	Pr4        string  `json:"pr4" yaml:"pr4"`
	Pr5        string  `json:"pr5" yaml:"pr5"`
	Pr6        string  `json:"pr6" yaml:"pr6"`
	Pr7        string  `json:"pr7" yaml:"pr7"`
	Pr8        string  `json:"pr8" yaml:"pr8"`
	Rc1        string  `json:"rc1" yaml:"rc1"`
	Rc2        string  `json:"rc2" yaml:"rc2"`
	Rc3        string  `json:"rc3" yaml:"rc3"`
	Rc4        string  `json:"rc4" yaml:"rc4"`
	Ex1        string  `json:"ex1" yaml:"ex1"`
	Ex2        string  `json:"ex2" yaml:"ex2"`

	CourseID   int     `json:"courseId,omitempty" yaml:"courseId,omitempty"`
	Instructor *string `json:"instructor,omitempty" yaml:"instructor,omitempty"`
	Period     *int    `json:"period,omitempty" yaml:"period,omitempty"`
	Time       *string `json:"time,omitempty" yaml:"time,omitempty"`
}

func (r *CourseHistoryRecord) slot(s Slot) *string {
	switch s {
	case PR1:
		return &r.Pr1
	case PR2:
		return &r.Pr2
	case PR3:
		return &r.Pr3
	case PR4:
		return &r.Pr4
	case PR5:
		return &r.Pr5
	case PR6:
		return &r.Pr6
	case PR7:
		return &r.Pr7
	case PR8:
		return &r.Pr8
	case RC1:
		return &r.Rc1
	case RC2:
		return &r.Rc2
	case RC3:
		return &r.Rc3
	case RC4:
		return &r.Rc4
	case EX1:
		return &r.Ex1
	case EX2:
		return &r.Ex2
	}
	return nil
}

// Get returns the value of a grade slot, a nil semester grade reads as "".
func (r CourseHistoryRecord) Get(s Slot) string {
	switch s {
	case SM1:
		if r.Sm1 == nil {
			return ""
		}
		return *r.Sm1
	case SM2:
		if r.Sm2 == nil {
			return ""
		}
		return *r.Sm2
	}
	if p := r.slot(s); p != nil {
		return *p
	}
	return ""
}

// Set writes a grade slot, setting a semester slot to "" stores nil. Unknown slots are
// ignored.
func (r *CourseHistoryRecord) Set(s Slot, value string) {
	switch s {
	case SM1:
		r.Sm1 = nullable(value)
		return
	case SM2:
		r.Sm2 = nullable(value)
		return
	}
	if p := r.slot(s); p != nil {
		*p = value
	}
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// ComputeFinalGrade returns the first non-empty slot of FinalGradePriority.
func (r CourseHistoryRecord) ComputeFinalGrade() string {
	for _, s := range FinalGradePriority {
		if v := r.Get(s); v != "" {
			return v
		}
	}
	return ""
}

// Clone returns a copy sharing no pointers with r.
func (r CourseHistoryRecord) Clone() CourseHistoryRecord {
	out := r
	out.Sm1 = clonePtr(r.Sm1)
	out.Sm2 = clonePtr(r.Sm2)
	out.Instructor = clonePtr(r.Instructor)
	out.Period = clonePtr(r.Period)
	out.Time = clonePtr(r.Time)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Year is the condensed content of one academic year.
type Year struct {
	GradeLevel int                            `json:"grade" yaml:"grade"`
	Courses    map[string]CourseHistoryRecord `json:"courses" yaml:"courses"`
}

func (y Year) clone() Year {
	out := Year{GradeLevel: y.GradeLevel}
	if y.Courses == nil {
		return out
	}
	out.Courses = make(map[string]CourseHistoryRecord, len(y.Courses))
	for name, c := range y.Courses {
		out.Courses[name] = c.Clone()
	}
	return out
}

// AltKey is the top level key the alt-track years are serialized under.
const AltKey = "alt"

// AcademicHistory maps a year key (`<begin>-<end>`) to its regular courses, alt-track
// courses live in Alt under the same year keys.
//
// It serializes as a single object holding every year key plus an `alt` key when there are
// alt-track courses.
type AcademicHistory struct {
	Years map[string]Year
	Alt   map[string]Year
}

func NewAcademicHistory() *AcademicHistory {
	return &AcademicHistory{
		Years: map[string]Year{},
		Alt:   map[string]Year{},
	}
}

// YearKeys returns the regular year keys in lexicographic order.
func (h *AcademicHistory) YearKeys() []string {
	return slices.Sorted(maps.Keys(h.Years))
}

// LatestYear returns the lexicographically greatest year key. Keys are compared as plain
// strings, `999-1000` sorts after `2023-2024`.
func (h *AcademicHistory) LatestYear() (string, bool) {
	keys := h.YearKeys()
	if len(keys) == 0 {
		return "", false
	}
	return keys[len(keys)-1], true
}

// Clone returns a deep copy of h.
func (h *AcademicHistory) Clone() *AcademicHistory {
	out := NewAcademicHistory()
	for k, y := range h.Years {
		out.Years[k] = y.clone()
	}
	for k, y := range h.Alt {
		out.Alt[k] = y.clone()
	}
	return out
}

func (h *AcademicHistory) flatten() map[string]any {
	out := make(map[string]any, len(h.Years)+1)
	for k, y := range h.Years {
		out[k] = y
	}
	if len(h.Alt) > 0 {
		out[AltKey] = h.Alt
	}
	return out
}

func (h *AcademicHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.flatten())
}

func (h *AcademicHistory) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*h = *NewAcademicHistory()
	for k, v := range raw {
		if k == AltKey {
			if err := json.Unmarshal(v, &h.Alt); err != nil {
				return err
			}
			continue
		}
		var y Year
		if err := json.Unmarshal(v, &y); err != nil {
			return err
		}
		h.Years[k] = y
	}
	for _, y := range h.Years {
		for name, c := range y.Courses {
			c.CourseName = name
			y.Courses[name] = c
		}
	}
	for _, y := range h.Alt {
		for name, c := range y.Courses {
			c.CourseName = name
			c.IsAltTrack = true
			y.Courses[name] = c
		}
	}
	return nil
}

func (h *AcademicHistory) MarshalYAML() (any, error) {
	return h.flatten(), nil
}
