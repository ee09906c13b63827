package core

// filter.go evaluates column filters and free-text search against records.
//
// Evaluation is total: a filter on a column the record does not have, or with
// an operator outside the supported set, is a non-match rather than an error.
// Filters are combined with AND, so their order never affects the result.

import "strings"

// Matches reports whether rec passes the search term and every filter.
// An empty search term and an empty filter list both match everything.
func Matches(rec Record, filters []ColumnFilter, search string) bool {
	if !MatchesSearch(rec, search) {
		return false
	}
	for _, f := range filters {
		if !MatchesFilter(rec, f) {
			return false
		}
	}
	return true
}

// MatchesSearch reports whether any string cell of rec contains term,
// ignoring case. Non-string cells are never searched.
func MatchesSearch(rec Record, term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, col := range rec.columns {
		s, ok := rec.values[col].(string)
		if ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// MatchesFilter applies a single filter to rec.
func MatchesFilter(rec Record, f ColumnFilter) bool {
	cell, ok := rec.Get(f.Column)
	if !ok {
		return false
	}
	info, ok := operatorTable[f.Operator]
	if !ok {
		return false
	}

	text, isText := cell.(string)
	if !isText {
		// Only the raw equality pair looks at non-string cells, by strict comparison.
		if info.caseSensitive {
			switch info.shape {
			case shapeEqual:
				return cell == any(f.Value)
			case shapeNotEqual:
				return cell != any(f.Value)
			}
		}
		return false
	}

	value := f.Value
	if !info.caseSensitive {
		text = strings.ToLower(text)
		value = strings.ToLower(value)
	}

	switch info.shape {
	case shapeEqual:
		return text == value
	case shapeNotEqual:
		return text != value
	case shapeContainAnd:
		for _, n := range splitNeedles(value) {
			if !strings.Contains(text, n) {
				return false
			}
		}
		return true
	case shapeContainOr:
		needles := splitNeedles(value)
		if len(needles) == 0 {
			return true
		}
		for _, n := range needles {
			if strings.Contains(text, n) {
				return true
			}
		}
		return false
	case shapeNotContain:
		return !strings.Contains(text, value)
	case shapeStartWith:
		return strings.HasPrefix(text, value)
	case shapeEndWith:
		return strings.HasSuffix(text, value)
	}
	return false
}

// splitNeedles splits a multi-value filter on newlines and drops blank lines.
// A trailing carriage return from CRLF input is not part of the needle.
func splitNeedles(value string) []string {
	lines := strings.Split(value, "\n")
	needles := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		needles = append(needles, line)
	}
	return needles
}
