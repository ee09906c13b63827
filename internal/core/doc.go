// Package core provides the filter and validation engine for parameter datasets.
//
// The package has no I/O, storage or transport dependencies. Every operation
// is pure and total: bad data ends up in a report or evaluates to a non-match,
// it never panics or returns an error. HTTP handlers, the dataset store and
// tests all call it the same way.
//
// # Records
//
// A [Record] is an ordered mapping from column name to cell value. The CSV
// reader always produces string cells; other value types are accepted and
// handled by the evaluator.
//
// # Filtering
//
// [Matches] combines a free-text search with a list of [ColumnFilter] rules
// (logical AND). Each rule names a column, one of fourteen [Operator] values
// and a value that may hold newline-separated needles:
//
//	f := core.NewFilter("Campaign Name")
//	f.Operator = core.IgnoreCaseContainOr
//	f.Value = "spring\nsummer"
//	rows := core.Project(records, []core.ColumnFilter{f}, "")
//
// # Validation
//
// [Validate] checks records against a [ValidationContract]: required header
// columns, required non-empty cells, and the client prefix of the CID column.
//
// # Layers and download requests
//
// [Toggle] is the reducer for the data-layer picker. [BuildDownloadRequest]
// turns filters, accounts and a [Selection] into the reporting payload.
//
// # Error Handling
//
// Technical errors from outer layers are mapped to user-facing messages with
// support codes by [MapError].
package core
