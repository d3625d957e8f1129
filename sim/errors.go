package sim

import (
	"fmt"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// ConfigurationError reports malformed inputs or coefficients. It is fatal and
// always raised before the tick loop starts.
type ConfigurationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += " in " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErrorf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DataIntegrityError reports a violated contract-partition invariant for one
// (site, category) at one tick. Tick is -1 when the violation was found by a
// whole-history check rather than during the tick loop.
type DataIntegrityError struct {
	SiteID   string
	Category catalog.Category
	Tick     int
	Reason   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error at site=%s category=%s tick=%d: %s",
		e.SiteID, e.Category, e.Tick, e.Reason)
}
