package sim

import (
	"hash/fnv"
	"math/rand"

	"github.com/ges257/pe-rollup-intelligence-system/sim/catalog"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two runs with the same SimulationKey and identical inputs MUST produce
// bit-for-bit identical output tables.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Names ===

const (
	// SubsystemIntegration streams integration draws, one stream per site.
	SubsystemIntegration = "integration"

	// SubsystemContract streams initial selection and switch draws, one stream per (site, category).
	SubsystemContract = "contract"

	// SubsystemKPI streams baseline and noise draws, one stream per site.
	SubsystemKPI = "kpi"
)

// SubsystemSite returns the stream name for a per-site subsystem.
func SubsystemSite(subsystem, siteID string) string {
	return subsystem + "/" + siteID
}

// SubsystemPair returns the contract stream name for a (site, category) pair.
func SubsystemPair(siteID string, category catalog.Category) string {
	return SubsystemContract + "/" + siteID + "/" + string(category)
}

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG streams per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: safe for concurrent use. ForSubsystem holds no shared state and
// returns a new *rand.Rand on every call; the returned stream is owned by the caller
// and must not be shared across goroutines.
type PartitionedRNG struct {
	key SimulationKey
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key}
}

// ForSubsystem returns a freshly seeded RNG for the named subsystem.
// Calling it twice with the same name yields two streams with identical sequences.
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	return rand.New(rand.NewSource(DeriveSeed(p.key, name)))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// DeriveSeed returns the seed of the named subsystem stream.
func DeriveSeed(key SimulationKey, name string) int64 {
	return int64(key) ^ fnv1a64(name)
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
