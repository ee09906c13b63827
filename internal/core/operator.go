package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedOperator is returned when an operator name is not one of the
// fourteen evaluable operators.
var ErrUnsupportedOperator = errors.New("unsupported filter operator")

// Operator is a comparison strategy between a cell and a filter value.
type Operator string

// Case-sensitive operators compare raw cell text.
const (
	CaseEqual      Operator = "CASE_EQUAL"
	CaseNotEqual   Operator = "CASE_NOT_EQUAL"
	CaseContainAnd Operator = "CASE_CONTAIN_AND"
	CaseContainOr  Operator = "CASE_CONTAIN_OR"
	CaseNotContain Operator = "CASE_NOT_CONTAIN"
	CaseStartWith  Operator = "CASE_START_WITH"
	CaseEndWith    Operator = "CASE_END_WITH"
)

// Case-insensitive operators lower-case both sides before comparing.
const (
	IgnoreCaseEqual      Operator = "IGNORE_CASE_EQUAL"
	IgnoreCaseNotEqual   Operator = "IGNORE_CASE_NOT_EQUAL"
	IgnoreCaseContainAnd Operator = "IGNORE_CASE_CONTAIN_AND"
	IgnoreCaseContainOr  Operator = "IGNORE_CASE_CONTAIN_OR"
	IgnoreCaseNotContain Operator = "IGNORE_CASE_NOT_CONTAIN"
	IgnoreCaseStartWith  Operator = "IGNORE_CASE_START_WITH"
	IgnoreCaseEndWith    Operator = "IGNORE_CASE_END_WITH"
)

// DefaultOperator is assigned to newly created filters.
const DefaultOperator = CaseContainOr

type opShape int

const (
	shapeEqual opShape = iota
	shapeNotEqual
	shapeContainAnd
	shapeContainOr
	shapeNotContain
	shapeStartWith
	shapeEndWith
)

type operatorInfo struct {
	shape         opShape
	caseSensitive bool
	label         string
}

// operatorTable is the closed set of evaluable operators.
var operatorTable = map[Operator]operatorInfo{
	CaseEqual:      {shapeEqual, true, "equals"},
	CaseNotEqual:   {shapeNotEqual, true, "does not equal"},
	CaseContainAnd: {shapeContainAnd, true, "contains all of"},
	CaseContainOr:  {shapeContainOr, true, "contains any of"},
	CaseNotContain: {shapeNotContain, true, "does not contain"},
	CaseStartWith:  {shapeStartWith, true, "starts with"},
	CaseEndWith:    {shapeEndWith, true, "ends with"},

	IgnoreCaseEqual:      {shapeEqual, false, "equals (ignore case)"},
	IgnoreCaseNotEqual:   {shapeNotEqual, false, "does not equal (ignore case)"},
	IgnoreCaseContainAnd: {shapeContainAnd, false, "contains all of (ignore case)"},
	IgnoreCaseContainOr:  {shapeContainOr, false, "contains any of (ignore case)"},
	IgnoreCaseNotContain: {shapeNotContain, false, "does not contain (ignore case)"},
	IgnoreCaseStartWith:  {shapeStartWith, false, "starts with (ignore case)"},
	IgnoreCaseEndWith:    {shapeEndWith, false, "ends with (ignore case)"},
}

// operatorOrder is the display order used by Operators.
var operatorOrder = []Operator{
	CaseContainOr, CaseContainAnd, CaseNotContain, CaseEqual, CaseNotEqual, CaseStartWith, CaseEndWith,
	IgnoreCaseContainOr, IgnoreCaseContainAnd, IgnoreCaseNotContain, IgnoreCaseEqual, IgnoreCaseNotEqual, IgnoreCaseStartWith, IgnoreCaseEndWith,
}

// OperatorOption describes one operator for selection lists.
type OperatorOption struct {
	Operator      Operator `json:"operator"`
	Label         string   `json:"label"`
	CaseSensitive bool     `json:"caseSensitive"`
	MultiValue    bool     `json:"multiValue"`
}

// Operators enumerates every supported operator in display order.
func Operators() []OperatorOption {
	out := make([]OperatorOption, 0, len(operatorOrder))
	for _, op := range operatorOrder {
		info := operatorTable[op]
		out = append(out, OperatorOption{
			Operator:      op,
			Label:         info.label,
			CaseSensitive: info.caseSensitive,
			MultiValue:    info.shape == shapeContainAnd || info.shape == shapeContainOr,
		})
	}
	return out
}

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	_, ok := operatorTable[op]
	return ok
}

// CaseSensitive reports whether op compares raw text.
func (op Operator) CaseSensitive() bool {
	return operatorTable[op].caseSensitive
}

// ParseOperator converts a wire name to an Operator.
// Placeholder names such as "ALL" or "" are rejected.
func ParseOperator(name string) (Operator, error) {
	op := Operator(strings.ToUpper(strings.TrimSpace(name)))
	if !op.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOperator, name)
	}
	return op, nil
}

// UnmarshalText lets JSON decoding reject placeholder operators.
func (op *Operator) UnmarshalText(text []byte) error {
	parsed, err := ParseOperator(string(text))
	if err != nil {
		return err
	}
	*op = parsed
	return nil
}
