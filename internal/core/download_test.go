package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDownloadRequest(t *testing.T) {
	filters := []ColumnFilter{
		{ID: "1", Column: "Campaign Name", Operator: IgnoreCaseContainOr, Value: "spring\nsummer"},
		{ID: "2", Column: "CID", Operator: CaseStartWith, Value: "C1"},
		{ID: "3", Column: "Keyword ID", Operator: CaseEqual, Value: ""},
	}

	req, dropped := BuildDownloadRequest(filters, []string{"111", "222"}, SelectionOf(LayerKeyword))

	require.Len(t, dropped, 1)
	assert.Equal(t, "CID", dropped[0].Column)

	assert.Equal(t, LayerKeyword, req.DownloadLevel)
	assert.Equal(t, []string{"111", "222"}, req.FilterDetails.AccountIDList)
	assert.Equal(t, []DownloadRule{
		{Column: "CAMPAIGN_NAME", Condition: RuleCondition{Operator: IgnoreCaseContainOr, Value: []string{"spring", "summer"}}},
		{Column: "KEYWORD_ID", Condition: RuleCondition{Operator: CaseEqual, Value: []string{""}}},
	}, req.FilterDetails.Rules)
}

func TestBuildDownloadRequest_JSONShape(t *testing.T) {
	filters := []ColumnFilter{{ID: "1", Column: "Ad ID", Operator: CaseEqual, Value: "9"}}

	req, dropped := BuildDownloadRequest(filters, []string{"111"}, Selection{})
	assert.Empty(t, dropped)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"filter_details": {
			"rules": [{"column": "AD_ID", "condition": {"operator": "CASE_EQUAL", "value": ["9"]}}],
			"account_id_list": ["111"]
		},
		"download_level": "ad_and_keyword"
	}`, string(data))
}

func TestBuildDownloadRequest_NoFilters(t *testing.T) {
	req, dropped := BuildDownloadRequest(nil, nil, SelectionOf(LayerCampaign))

	assert.Nil(t, dropped)
	assert.NotNil(t, req.FilterDetails.Rules)
	assert.NotNil(t, req.FilterDetails.AccountIDList)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"filter_details":{"rules":[],"account_id_list":[]},"download_level":"campaign"}`, string(data))
}

func TestExternalColumn(t *testing.T) {
	enum, ok := ExternalColumn("Parameter Value")
	assert.True(t, ok)
	assert.Equal(t, "PARAMETER_VALUE", enum)

	for _, unmapped := range []string{"Action", "CID", "campaign name", ""} {
		_, ok := ExternalColumn(unmapped)
		assert.False(t, ok, unmapped)
	}
}
