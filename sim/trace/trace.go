package trace

// TraceLevel controls the verbosity of switch tracing.
type TraceLevel string

const (
	// TraceLevelNone keeps only suppressed-switch warnings.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every fired switch as well.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects switch records during a run. Switch counts are kept
// at every level so summaries work with tracing disabled.
type SimulationTrace struct {
	Config     TraceConfig
	Switches   []SwitchRecord
	Suppressed []SuppressedRecord

	switchCount int
	byCategory  map[string]int
	tenureSum   int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Switches:   make([]SwitchRecord, 0),
		Suppressed: make([]SuppressedRecord, 0),
		byCategory: make(map[string]int),
	}
}

// RecordSwitch counts a switch and, at decisions level, appends the record.
func (st *SimulationTrace) RecordSwitch(record SwitchRecord) {
	st.switchCount++
	st.byCategory[record.Category]++
	st.tenureSum += record.TenureMonths
	if st.Config.Level == TraceLevelDecisions {
		st.Switches = append(st.Switches, record)
	}
}

// RecordSuppressed appends a suppressed-switch warning. Always kept.
func (st *SimulationTrace) RecordSuppressed(record SuppressedRecord) {
	st.Suppressed = append(st.Suppressed, record)
}

// Merge appends other's records after st's, preserving order.
func (st *SimulationTrace) Merge(other *SimulationTrace) {
	if other == nil {
		return
	}
	st.Switches = append(st.Switches, other.Switches...)
	st.Suppressed = append(st.Suppressed, other.Suppressed...)
	st.switchCount += other.switchCount
	st.tenureSum += other.tenureSum
	for c, n := range other.byCategory {
		st.byCategory[c] += n
	}
}

// SwitchCount returns the number of fired switches, independent of level.
func (st *SimulationTrace) SwitchCount() int {
	return st.switchCount
}
