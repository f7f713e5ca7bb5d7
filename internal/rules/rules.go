// Package rules holds the small closed-variant types shared across the
// engine: scoring rules, ownership reporting mode, and the bounded search
// parameters from which a Search is constructed.
//
// These are modeled as tagged sums (an enum type plus a String method),
// not polymorphic objects: the variant sets are small and closed.
package rules

import "fmt"

// Scoring identifies the rule set governing komi application and area
// scoring semantics.
type Scoring uint8

const (
	Japanese Scoring = iota
	Chinese
	Korean
)

//go:generate go tool enumer -type=Scoring -trimprefix= -transform=lower rules.go

func (s Scoring) String() string {
	switch s {
	case Japanese:
		return "japanese"
	case Chinese:
		return "chinese"
	case Korean:
		return "korean"
	default:
		return fmt.Sprintf("Scoring(%d)", uint8(s))
	}
}

// IsTerritory reports whether the scoring rule counts territory directly
// (japanese/korean), feeding global feature 9.
func (s Scoring) IsTerritory() bool {
	return s == Japanese || s == Korean
}

// HasSekiTax reports whether seki groups are taxed under this rule set,
// feeding global feature 10.
func (s Scoring) HasSekiTax() bool {
	return s == Japanese || s == Korean
}

// IsChineseArea reports whether area scoring (Chinese-style) governs,
// enabling the area map and its two spatial planes.
func (s Scoring) IsChineseArea() bool {
	return s == Chinese
}

// OwnershipMode selects how final per-point ownership is reported.
type OwnershipMode uint8

const (
	OwnershipRoot OwnershipMode = iota
	OwnershipTree
)

//go:generate go tool enumer -type=OwnershipMode -trimprefix=Ownership -transform=lower rules.go

func (m OwnershipMode) String() string {
	switch m {
	case OwnershipRoot:
		return "root"
	case OwnershipTree:
		return "tree"
	default:
		return fmt.Sprintf("OwnershipMode(%d)", uint8(m))
	}
}

// clamp restricts v to [lo, hi].
func clamp[T int | float64](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt and ClampFloat re-export the clamp helper for callers outside
// this package that need the identical clamping semantics.
func ClampInt(v, lo, hi int) int { return clamp(v, lo, hi) }
func ClampFloat(v, lo, hi float64) float64 { return clamp(v, lo, hi) }

// SearchParams bundles the bounded configuration knobs a Search is
// constructed from. Callers clamp with Clamp before use.
type SearchParams struct {
	Visits int
	MaxTimeMs int
	BatchSize int
	MaxChildren int
	TopK int
	AnalysisPvLen int
	WideRootNoise float64

	Scoring Scoring
	Komi float64
	NNRandomize bool
	ConservativePass bool
	OwnershipMode OwnershipMode
	PolicyOptimism float64
	RootPolicyOptimism float64
}

// DefaultSearchParams mirrors KataGo's analysis defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Visits: 500,
		MaxTimeMs: 5000,
		BatchSize: 8,
		MaxChildren: 64,
		TopK: 10,
		AnalysisPvLen: 15,
		WideRootNoise: 0,
		Scoring: Japanese,
		Komi: 7.5,
		PolicyOptimism: 0.2,
		RootPolicyOptimism: 0.2,
		OwnershipMode: OwnershipRoot,
	}
}

// Clamp enforces the knob bounds in place and returns the receiver for
// chaining.
func (p *SearchParams) Clamp() *SearchParams {
	p.Visits = ClampInt(p.Visits, 16, 5000)
	p.MaxTimeMs = ClampInt(p.MaxTimeMs, 25, 60000)
	p.BatchSize = ClampInt(p.BatchSize, 1, 64)
	p.MaxChildren = ClampInt(p.MaxChildren, 4, 361)
	p.TopK = ClampInt(p.TopK, 1, 50)
	p.AnalysisPvLen = ClampInt(p.AnalysisPvLen, 0, 60)
	p.WideRootNoise = ClampFloat(p.WideRootNoise, 0, 5)
	return p
}
