package core

import "strings"

// externalColumns maps dataset column names to the reporting API's column enum.
// Columns not listed here (Action, CID) cannot be filtered server-side.
var externalColumns = map[string]string{
	"Campaign ID":     "CAMPAIGN_ID",
	"Campaign Name":   "CAMPAIGN_NAME",
	"Ad Group ID":     "AD_GROUP_ID",
	"Ad Group Name":   "AD_GROUP_NAME",
	"Ad ID":           "AD_ID",
	"Keyword ID":      "KEYWORD_ID",
	"Keyword":         "KEYWORD",
	"Match Type":      "MATCH_TYPE",
	"Parameter Name":  "PARAMETER_NAME",
	"Parameter Value": "PARAMETER_VALUE",
}

// ExternalColumn returns the reporting API enum for a dataset column.
func ExternalColumn(name string) (string, bool) {
	enum, ok := externalColumns[name]
	return enum, ok
}

// DownloadRequest is the body sent to the reporting backend.
type DownloadRequest struct {
	FilterDetails FilterDetails `json:"filter_details"`
	DownloadLevel DataLayer     `json:"download_level"`
}

// FilterDetails carries the server-side filter rules and the accounts to report on.
type FilterDetails struct {
	Rules         []DownloadRule `json:"rules"`
	AccountIDList []string       `json:"account_id_list"`
}

// DownloadRule is one filter translated to the reporting API's vocabulary.
type DownloadRule struct {
	Column    string        `json:"column"`
	Condition RuleCondition `json:"condition"`
}

// RuleCondition is the operator and value list of a DownloadRule.
type RuleCondition struct {
	Operator Operator `json:"operator"`
	Value    []string `json:"value"`
}

// BuildDownloadRequest translates filters, accounts and a layer selection into
// a DownloadRequest. Filters on columns without an external mapping are left
// out of the rules and returned as dropped so the caller can report them.
func BuildDownloadRequest(filters []ColumnFilter, accountIDs []string, sel Selection) (DownloadRequest, []ColumnFilter) {
	rules := make([]DownloadRule, 0, len(filters))
	var dropped []ColumnFilter

	for _, f := range filters {
		enum, ok := ExternalColumn(f.Column)
		if !ok {
			dropped = append(dropped, f)
			continue
		}
		rules = append(rules, DownloadRule{
			Column: enum,
			Condition: RuleCondition{
				Operator: f.Operator,
				Value:    ruleValues(f.Value),
			},
		})
	}

	accounts := make([]string, len(accountIDs))
	copy(accounts, accountIDs)

	return DownloadRequest{
		FilterDetails: FilterDetails{
			Rules:         rules,
			AccountIDList: accounts,
		},
		DownloadLevel: sel.Level(),
	}, dropped
}

// ruleValues splits a newline-delimited filter value; an empty value becomes [""].
func ruleValues(value string) []string {
	if value == "" {
		return []string{""}
	}
	return strings.Split(value, "\n")
}
