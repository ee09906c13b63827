package core

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_Quoting(t *testing.T) {
	records := []Record{
		NewRecord(Cell{"Keyword", `say "hi"`}, Cell{"Parameter Value", "a,b"}),
		NewRecord(Cell{"Keyword", "line\nbreak"}, Cell{"Parameter Value", ""}),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	want := `"Keyword","Parameter Value"` + "\n" +
		`"say ""hi""","a,b"` + "\n" +
		"\"line\nbreak\",\"\""
	assert.Equal(t, want, buf.String())
	assert.False(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestWriteCSV_SingleRecord(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Record{NewRecord(Cell{"Action", "x"}, Cell{"CID", "1-2"})}))

	assert.Equal(t, "\"Action\",\"CID\"\n\"x\",\"1-2\"", buf.String())
}

func TestWriteCSVWithHeader_AbsentAndNonString(t *testing.T) {
	rec := NewRecord(Cell{"Clicks", 12}, Cell{"Keyword", "shoes"})

	var buf bytes.Buffer
	require.NoError(t, WriteCSVWithHeader(&buf, []string{"Keyword", "Ad ID", "Clicks"}, []Record{rec}))

	assert.Equal(t, `"Keyword","Ad ID","Clicks"`+"\n"+`"shoes","","12"`, buf.String())
}

func TestExportCSV_HeaderFromUnfilteredDataset(t *testing.T) {
	records := []Record{
		paramRecord("Spring Sale", "red"),
		paramRecord("Winter Sale", "blue"),
	}
	none := []ColumnFilter{{ID: "x", Column: "Keyword", Operator: CaseEqual, Value: "green"}}

	var buf bytes.Buffer
	n, err := ExportCSV(&buf, records, none, "")
	require.NoError(t, err)

	assert.Equal(t, 0, n)
	assert.Equal(t, `"CID","Campaign Name","Keyword"`, buf.String())
}

func TestExportCSV_Subset(t *testing.T) {
	records := []Record{
		paramRecord("Spring Sale", "red"),
		paramRecord("Winter Sale", "blue"),
		paramRecord("Spring Launch", "green"),
	}
	spring := []ColumnFilter{{ID: "s", Column: "Campaign Name", Operator: CaseStartWith, Value: "Spring"}}

	var buf bytes.Buffer
	n, err := ExportCSV(&buf, records, spring, "")
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"C1-001","Spring Sale","red"`, lines[1])
	assert.Equal(t, `"C1-001","Spring Launch","green"`, lines[2])
}

func TestExportCSV_EmptyDataset(t *testing.T) {
	var buf bytes.Buffer
	n, err := ExportCSV(&buf, nil, nil, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, buf.String())
}

func TestProject_PreservesOrder(t *testing.T) {
	records := []Record{
		paramRecord("A", "1"),
		paramRecord("B", "2"),
		paramRecord("A", "3"),
	}

	got := Project(records, []ColumnFilter{{Column: "Campaign Name", Operator: CaseEqual, Value: "A"}}, "")

	require.Len(t, got, 2)
	k0, _ := got[0].Text("Keyword")
	k1, _ := got[1].Text("Keyword")
	assert.Equal(t, []string{"1", "3"}, []string{k0, k1})
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2025, 3, 7, 9, 5, 1, 0, time.UTC)

	assert.Equal(t, "params.csv", ExportFileName("params.csv", now))
	assert.Equal(t, "csv_export_20250307_090501.csv", ExportFileName("", now))
	assert.Equal(t, "csv_export_20250307_090501.csv", ExportFileName("  ", now))
}
