package model

const (
	ConfigLoanPeriodDays      = "loan_period_days"
	ConfigMaxLoanLimit        = "max_loan_limit"
	ConfigMaxExtensionCount   = "max_extension_count"
	ConfigExtensionPeriodDays = "extension_period_days"
)

type PolicyDefault struct {
	Key         string
	Value       string
	Description string
}

// PolicyDefaults lists every recognised policy key with the value used when the store has none.
var PolicyDefaults = []PolicyDefault{
	{Key: ConfigLoanPeriodDays, Value: "14", Description: "Loan period in days"},
	{Key: ConfigMaxLoanLimit, Value: "3", Description: "Maximum concurrent loans per member"},
	{Key: ConfigMaxExtensionCount, Value: "1", Description: "Maximum number of extensions per loan"},
	{Key: ConfigExtensionPeriodDays, Value: "7", Description: "Days added by one extension"},
}

func LookupPolicyDefault(key string) (PolicyDefault, bool) {
	for _, d := range PolicyDefaults {
		if d.Key == key {
			return d, true
		}
	}
	return PolicyDefault{}, false
}
