package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/adparams/internal/core"
)

func TestParametersSchema(t *testing.T) {
	s, ok := Get(ParametersKey)
	require.True(t, ok)

	assert.Len(t, s.Columns, 12)
	assert.Equal(t, "Action", s.Columns[0])
	assert.Equal(t, "Parameter Value", s.Columns[11])
	assert.Equal(t, s.Columns, s.RequiredColumns())
	assert.Equal(t, []string{"Action", "CID", "Campaign ID", "Parameter Name"}, s.RequiredCellColumns())
	assert.Equal(t, "Campaign Name", s.DefaultFilterColumn)
}

func TestContract(t *testing.T) {
	s, err := Lookup(ParametersKey)
	require.NoError(t, err)

	c := s.Contract("C1")
	assert.Equal(t, "C1", c.ExternalEntityID)

	header := s.Columns
	row := []string{"ADD", "C2-1", "100", "", "", "", "", "", "", "", "{_lp}", ""}
	report := core.Validate([]core.Record{core.RecordFromRow(header, row)}, c)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, core.CidDoesNotMatchClientID, report.Errors[0].Kind)
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestAll_SortedByGroupThenKey(t *testing.T) {
	all := All()
	require.GreaterOrEqual(t, len(all), 2)
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1], all[i]
		if prev.Group == cur.Group {
			assert.Less(t, prev.Key, cur.Key)
		} else {
			assert.Less(t, prev.Group, cur.Group)
		}
	}
	assert.Contains(t, Groups(), "Parameters")
}

func TestRegister_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(UploadSchema{Key: ParametersKey})
	})
}
