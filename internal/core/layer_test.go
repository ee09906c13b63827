package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sel(layers ...DataLayer) Selection { return selectionOf(layers...) }

func TestToggle_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		from  Selection
		layer DataLayer
		want  Selection
	}{
		{"campaign on", sel(), LayerCampaign, sel(LayerCampaign)},
		{"campaign off", sel(LayerCampaign), LayerCampaign, sel()},
		{"ad group replaces campaign", sel(LayerCampaign), LayerAdGroup, sel(LayerAdGroup)},
		{"campaign replaces ad_and_keyword", sel(LayerAdAndKeyword), LayerCampaign, sel(LayerCampaign)},
		{"ad on", sel(), LayerAd, sel(LayerAd)},
		{"ad drops campaign tier", sel(LayerAdGroup), LayerAd, sel(LayerAd)},
		{"ad with keyword combines", sel(LayerKeyword), LayerAd, sel(LayerAdAndKeyword)},
		{"ad off", sel(LayerAd), LayerAd, sel()},
		{"ad off from combined", sel(LayerAdAndKeyword), LayerAd, sel(LayerKeyword)},
		{"keyword on", sel(), LayerKeyword, sel(LayerKeyword)},
		{"keyword with ad combines", sel(LayerAd), LayerKeyword, sel(LayerAdAndKeyword)},
		{"keyword off", sel(LayerKeyword), LayerKeyword, sel()},
		{"keyword off from combined", sel(LayerAdAndKeyword), LayerKeyword, sel(LayerAd)},
		{"combined directly on", sel(LayerCampaign), LayerAdAndKeyword, sel(LayerAdAndKeyword)},
		{"combined directly off", sel(LayerAdAndKeyword), LayerAdAndKeyword, sel()},
		{"unknown layer", sel(LayerAd), DataLayer("region"), sel(LayerAd)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Toggle(tt.from, tt.layer)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestToggle_Walk(t *testing.T) {
	s := Selection{}
	steps := []struct {
		layer DataLayer
		want  Selection
	}{
		{LayerCampaign, sel(LayerCampaign)},
		{LayerAd, sel(LayerAd)},
		{LayerKeyword, sel(LayerAdAndKeyword)},
		{LayerAd, sel(LayerKeyword)},
		{LayerKeyword, sel()},
	}

	for i, step := range steps {
		next := Toggle(s, step.layer)
		require.True(t, step.want.Equal(next), "step %d: got %s, want %s", i, next, step.want)
		s = next
	}
}

func TestToggle_DoesNotModifyInput(t *testing.T) {
	before := sel(LayerAd)
	_ = Toggle(before, LayerKeyword)
	assert.Equal(t, []DataLayer{LayerAd}, before.Layers())
}

func TestSelection_Level(t *testing.T) {
	assert.Equal(t, LayerAdAndKeyword, Selection{}.Level())
	assert.Equal(t, LayerCampaign, sel(LayerCampaign).Level())
	assert.Equal(t, LayerKeyword, sel(LayerKeyword).Level())
}

func TestSelectionOf(t *testing.T) {
	tests := []struct {
		name string
		in   []DataLayer
		want Selection
	}{
		{"empty", nil, sel()},
		{"ad and keyword", []DataLayer{LayerAd, LayerKeyword}, sel(LayerAdAndKeyword)},
		{"duplicates fold once", []DataLayer{LayerAd, LayerAd}, sel(LayerAd)},
		{"last tier wins", []DataLayer{LayerAd, LayerCampaign}, sel(LayerCampaign)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectionOf(tt.in...)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestSelection_JSON(t *testing.T) {
	data, err := json.Marshal(sel(LayerKeyword))
	require.NoError(t, err)
	assert.JSONEq(t, `["keyword"]`, string(data))

	data, err = json.Marshal(Selection{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	var got Selection
	require.NoError(t, json.Unmarshal([]byte(`["AD","keyword"]`), &got))
	assert.True(t, sel(LayerAdAndKeyword).Equal(got))

	assert.Error(t, json.Unmarshal([]byte(`["region"]`), &got))
}

func TestParseLayer(t *testing.T) {
	l, err := ParseLayer(" Ad_Group ")
	require.NoError(t, err)
	assert.Equal(t, LayerAdGroup, l)

	_, err = ParseLayer("")
	assert.Error(t, err)
}
