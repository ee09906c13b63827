package schema

// Keys of the built-in schemas.
const (
	ParametersKey        = "parameters"
	AccountParametersKey = "account_parameters"
)

func init() {
	registerParameters()
	registerAccountParameters()
}

// registerParameters registers the entity-level parameter upload: one row per
// campaign, ad group, ad or keyword parameter. All twelve columns must be in
// the header; the entity columns below the campaign may be blank.
func registerParameters() {
	Register(UploadSchema{
		Key:   ParametersKey,
		Group: "Parameters",
		Label: "Entity parameters",
		FieldSpecs: []FieldSpec{
			{Name: "Action", Required: true},
			{Name: "CID", Required: true},
			{Name: "Campaign ID", Required: true},
			{Name: "Campaign Name", Required: true, AllowEmpty: true},
			{Name: "Ad Group ID", Required: true, AllowEmpty: true},
			{Name: "Ad Group Name", Required: true, AllowEmpty: true},
			{Name: "Ad ID", Required: true, AllowEmpty: true},
			{Name: "Keyword ID", Required: true, AllowEmpty: true},
			{Name: "Keyword", Required: true, AllowEmpty: true},
			{Name: "Match Type", Required: true, AllowEmpty: true},
			{Name: "Parameter Name", Required: true},
			{Name: "Parameter Value", Required: true, AllowEmpty: true},
		},
		DefaultFilterColumn: "Campaign Name",
	})
}

// registerAccountParameters registers account-wide parameters that are not
// attached to a campaign.
func registerAccountParameters() {
	Register(UploadSchema{
		Key:   AccountParametersKey,
		Group: "Parameters",
		Label: "Account parameters",
		FieldSpecs: []FieldSpec{
			{Name: "Action", Required: true},
			{Name: "CID", Required: true},
			{Name: "Parameter Name", Required: true},
			{Name: "Parameter Value", Required: true, AllowEmpty: true},
		},
		DefaultFilterColumn: "Parameter Name",
	})
}
