package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FilterError describes why a single filter cannot be evaluated.
type FilterError struct {
	ID      string
	Column  string
	Message string
}

func (e FilterError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("invalid filter %s: %s", e.ID, e.Message)
	}
	return "invalid filter: " + e.Message
}

// NewFilter allocates a filter on defaultColumn with a fresh random ID,
// the default operator and an empty value.
func NewFilter(defaultColumn string) ColumnFilter {
	return ColumnFilter{
		ID:       uuid.NewString(),
		Column:   defaultColumn,
		Operator: DefaultOperator,
	}
}

// FilterPatch holds the fields to change in Update. Nil fields are left as-is.
type FilterPatch struct {
	Column   *string   `json:"columnName,omitempty"`
	Operator *Operator `json:"operator,omitempty"`
	Value    *string   `json:"value,omitempty"`
}

// FilterSet is an ordered list of filters combined with AND.
// Its methods never modify the receiver; they return a new set.
type FilterSet []ColumnFilter

// Add returns a new set with f appended.
func (s FilterSet) Add(f ColumnFilter) FilterSet {
	out := make(FilterSet, len(s), len(s)+1)
	copy(out, s)
	return append(out, f)
}

// Remove returns a new set without the filter with the given id.
func (s FilterSet) Remove(id string) FilterSet {
	out := make(FilterSet, 0, len(s))
	for _, f := range s {
		if f.ID != id {
			out = append(out, f)
		}
	}
	return out
}

// Update returns a new set where the filter with the given id has the patch applied.
// An unknown id yields an unchanged copy.
func (s FilterSet) Update(id string, patch FilterPatch) FilterSet {
	out := make(FilterSet, len(s))
	copy(out, s)
	for i := range out {
		if out[i].ID != id {
			continue
		}
		if patch.Column != nil {
			out[i].Column = *patch.Column
		}
		if patch.Operator != nil {
			out[i].Operator = *patch.Operator
		}
		if patch.Value != nil {
			out[i].Value = *patch.Value
		}
	}
	return out
}

// Find returns the filter with the given id.
func (s FilterSet) Find(id string) (ColumnFilter, bool) {
	for _, f := range s {
		if f.ID == id {
			return f, true
		}
	}
	return ColumnFilter{}, false
}

// ValidateFilters rejects filters that cannot be evaluated: a blank column,
// an unsupported operator, or a duplicated id. An empty list is valid and
// matches every record. A column that the dataset lacks is not an error.
func ValidateFilters(filters []ColumnFilter) error {
	var errs []error
	seen := make(map[string]bool, len(filters))

	for _, f := range filters {
		if strings.TrimSpace(f.Column) == "" {
			errs = append(errs, FilterError{ID: f.ID, Message: "missing column"})
		}
		if !f.Operator.Valid() {
			errs = append(errs, FilterError{
				ID:      f.ID,
				Column:  f.Column,
				Message: fmt.Sprintf("%v %q", ErrUnsupportedOperator, f.Operator),
			})
		}
		if f.ID != "" {
			if seen[f.ID] {
				errs = append(errs, FilterError{ID: f.ID, Column: f.Column, Message: "duplicate filter id"})
			}
			seen[f.ID] = true
		}
	}

	return errors.Join(errs...)
}
