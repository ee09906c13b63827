// Package schema holds the registry of upload schemas.
//
// Each schema names the columns an upload must carry and which of them must
// be filled on every row. Schemas register themselves in init.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JonMunkholm/adparams/internal/core"
)

// ErrUnknownSchema is returned by Lookup for keys that were never registered.
var ErrUnknownSchema = errors.New("unknown upload schema")

// FieldSpec describes one column of an upload.
type FieldSpec struct {
	Name string
	// Required columns must appear in the header.
	Required bool
	// AllowEmpty permits blank cells in a required column.
	AllowEmpty bool
}

// UploadSchema is one kind of CSV upload.
type UploadSchema struct {
	Key        string      `json:"key"`
	Group      string      `json:"group"`
	Label      string      `json:"label"`
	FieldSpecs []FieldSpec `json:"-"`

	// Columns is derived from FieldSpecs on Register when empty.
	Columns []string `json:"columns"`

	// CIDColumn overrides the composite id column checked against the client id.
	CIDColumn string `json:"cidColumn,omitempty"`

	// DefaultFilterColumn is offered when a new filter is added.
	DefaultFilterColumn string `json:"defaultFilterColumn"`
}

// RequiredColumns returns the columns that must be in the header, in field order.
func (s UploadSchema) RequiredColumns() []string {
	var cols []string
	for _, f := range s.FieldSpecs {
		if f.Required {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// RequiredCellColumns returns the required columns that may not hold blank cells.
func (s UploadSchema) RequiredCellColumns() []string {
	var cols []string
	for _, f := range s.FieldSpecs {
		if f.Required && !f.AllowEmpty {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// Contract builds the validation contract for an upload made for clientID.
func (s UploadSchema) Contract(clientID string) core.ValidationContract {
	return core.ValidationContract{
		RequiredColumns:     s.RequiredColumns(),
		RequiredCellColumns: s.RequiredCellColumns(),
		ExternalEntityID:    clientID,
		CIDColumn:           s.CIDColumn,
	}
}

var (
	registry   = make(map[string]UploadSchema)
	registryMu sync.RWMutex
)

// Register adds a schema to the registry.
// Panics if a schema with the same key is already registered.
func Register(s UploadSchema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.Key]; exists {
		panic(fmt.Sprintf("upload schema already registered: %s", s.Key))
	}

	if len(s.Columns) == 0 && len(s.FieldSpecs) > 0 {
		s.Columns = make([]string, len(s.FieldSpecs))
		for i, spec := range s.FieldSpecs {
			s.Columns[i] = spec.Name
		}
	}
	if s.DefaultFilterColumn == "" && len(s.Columns) > 0 {
		s.DefaultFilterColumn = s.Columns[0]
	}

	registry[s.Key] = s
}

// Get returns a schema by key.
func Get(key string) (UploadSchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[key]
	return s, ok
}

// Lookup is Get with an error for unknown keys.
func Lookup(key string) (UploadSchema, error) {
	s, ok := Get(key)
	if !ok {
		return UploadSchema{}, fmt.Errorf("%w: %q", ErrUnknownSchema, key)
	}
	return s, nil
}

// All returns all registered schemas sorted by group then key.
func All() []UploadSchema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]UploadSchema, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Group != result[j].Group {
			return result[i].Group < result[j].Group
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// Groups returns all unique group names, sorted.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, s := range registry {
		seen[s.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}
