// Package trace provides decision-trace recording for the contract switch simulation.
// It has no dependencies on sim/ and stores pure data types.
package trace

// SwitchRecord captures a single fired switch event.
type SwitchRecord struct {
	SiteID       string
	Category     string
	Tick         int     // month the departed contract ends
	FromVendor   string
	ToVendor     string
	Probability  float64 // switch probability evaluated at Tick
	TenureMonths int     // tenure of the departed contract at Tick
}

// SuppressedRecord captures a switch that fired but had no eligible successor
// (the category has a single vendor). It is a warning, not a failure.
type SuppressedRecord struct {
	SiteID   string
	Category string
	Tick     int
	VendorID string
	Reason   string
}
