package enums

import "fmt"

// ReportType identifies a reporting run tracked in report_runs.
type ReportType string

const (
	ReportTypeWeeklyShipped  ReportType = "weekly_shipped"
	ReportTypeMonthlyBilling ReportType = "monthly_billing"
)

var validReportTypes = []ReportType{
	ReportTypeWeeklyShipped,
	ReportTypeMonthlyBilling,
}

// IsValid reports whether the value matches the canonical report type enum.
func (r ReportType) IsValid() bool {
	for _, candidate := range validReportTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReportType converts the raw string to ReportType.
func ParseReportType(value string) (ReportType, error) {
	for _, candidate := range validReportTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid report type %q", value)
}
