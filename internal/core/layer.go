package core

// layer.go implements the data-layer selection used by download requests.
//
// Campaign-tier layers (campaign, ad_group) and entity-tier layers (ad,
// keyword) never mix. Ad and keyword combine into ad_and_keyword when both are
// chosen, and deselecting one of them from the combined state leaves the other.
//
// Reachable states: {}, {campaign}, {ad_group}, {ad}, {keyword}, {ad_and_keyword}.

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-set/v2"
)

// DataLayer is the granularity of downloaded report rows.
type DataLayer string

const (
	LayerCampaign     DataLayer = "campaign"
	LayerAdGroup      DataLayer = "ad_group"
	LayerAd           DataLayer = "ad"
	LayerKeyword      DataLayer = "keyword"
	LayerAdAndKeyword DataLayer = "ad_and_keyword"
)

// DefaultDownloadLevel is used when nothing is selected.
const DefaultDownloadLevel = LayerAdAndKeyword

// layerOrder is the canonical order of all layers.
var layerOrder = []DataLayer{LayerCampaign, LayerAdGroup, LayerAd, LayerKeyword, LayerAdAndKeyword}

// Layers returns every data layer in canonical order.
func Layers() []DataLayer {
	out := make([]DataLayer, len(layerOrder))
	copy(out, layerOrder)
	return out
}

// ParseLayer converts a wire name to a DataLayer.
func ParseLayer(name string) (DataLayer, error) {
	l := DataLayer(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range layerOrder {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown data layer %q", name)
}

// Selection is an immutable set of selected layers. The zero value is empty.
type Selection struct {
	layers *set.Set[DataLayer]
}

func selectionOf(layers ...DataLayer) Selection {
	return Selection{layers: set.From(layers)}
}

// Has reports direct membership of l.
func (s Selection) Has(l DataLayer) bool {
	return s.layers != nil && s.layers.Contains(l)
}

// Len returns the number of selected layers.
func (s Selection) Len() int {
	if s.layers == nil {
		return 0
	}
	return s.layers.Size()
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.Len() == 0
}

// Layers returns the selected layers in canonical order.
func (s Selection) Layers() []DataLayer {
	out := make([]DataLayer, 0, s.Len())
	for _, l := range layerOrder {
		if s.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// Equal reports whether both selections hold the same layers.
func (s Selection) Equal(other Selection) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, l := range s.Layers() {
		if !other.Has(l) {
			return false
		}
	}
	return true
}

// AdSelected reports whether ads are selected, alone or combined with keywords.
func (s Selection) AdSelected() bool {
	return s.Has(LayerAd) || s.Has(LayerAdAndKeyword)
}

// KeywordSelected reports whether keywords are selected, alone or combined with ads.
func (s Selection) KeywordSelected() bool {
	return s.Has(LayerKeyword) || s.Has(LayerAdAndKeyword)
}

// Level returns the download level for the selection:
// the selected layer, or DefaultDownloadLevel when nothing is selected.
func (s Selection) Level() DataLayer {
	layers := s.Layers()
	if len(layers) == 0 {
		return DefaultDownloadLevel
	}
	return layers[0]
}

func (s Selection) String() string {
	parts := make([]string, 0, s.Len())
	for _, l := range s.Layers() {
		parts = append(parts, string(l))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// MarshalJSON encodes the selection as an array in canonical order.
func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Layers())
}

// UnmarshalJSON decodes an array of layer names through SelectionOf,
// so any input list lands on a valid state.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	layers := make([]DataLayer, 0, len(names))
	for _, n := range names {
		l, err := ParseLayer(n)
		if err != nil {
			return err
		}
		layers = append(layers, l)
	}
	*s = SelectionOf(layers...)
	return nil
}

// SelectionOf builds a valid selection by toggling each distinct layer in
// order, starting from the empty selection.
func SelectionOf(layers ...DataLayer) Selection {
	var sel Selection
	seen := make(map[DataLayer]bool, len(layers))
	for _, l := range layers {
		if seen[l] {
			continue
		}
		seen[l] = true
		sel = Toggle(sel, l)
	}
	return sel
}

// Toggle returns the selection that results from clicking layer in sel.
// sel itself is never modified. Unknown layers leave the selection unchanged.
func Toggle(sel Selection, layer DataLayer) Selection {
	switch layer {
	case LayerCampaign, LayerAdGroup:
		if sel.Has(layer) {
			return Selection{}
		}
		return selectionOf(layer)

	case LayerAd:
		return toggleEntity(sel, sel.AdSelected(), sel.KeywordSelected(), LayerAd, LayerKeyword)

	case LayerKeyword:
		return toggleEntity(sel, sel.KeywordSelected(), sel.AdSelected(), LayerKeyword, LayerAd)

	case LayerAdAndKeyword:
		if sel.Has(LayerAdAndKeyword) {
			return Selection{}
		}
		return selectionOf(LayerAdAndKeyword)
	}

	return selectionOf(sel.Layers()...)
}

// toggleEntity flips one of ad/keyword, combining with or demoting to the other.
func toggleEntity(sel Selection, selfOn, otherOn bool, self, other DataLayer) Selection {
	if !selfOn {
		if otherOn {
			return selectionOf(LayerAdAndKeyword)
		}
		return selectionOf(self)
	}
	if sel.Has(LayerAdAndKeyword) {
		return selectionOf(other)
	}
	return Selection{}
}
