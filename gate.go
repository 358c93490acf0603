package gdbstub

import "github.com/Masterminds/semver/v3"

// FeatureGate pins, per optional qSupported extension, the minimum
// client capability level an embedder is willing to negotiate. This lets
// a host withhold newer optional extensions (reverse execution,
// catch-syscalls) from advertisement until the far end of a session is
// known to handle them -- useful when a fleet of older GDB/LLDB builds
// still talk to the same embedded target.
//
// A nil *FeatureGate (the default) allows every feature unconditionally.
type FeatureGate struct {
	constraints map[string]*semver.Constraints
	fallback    *semver.Constraints
}

// NewFeatureGate builds a gate from a single constraint expression (e.g.
// ">=1.2.0") applied to every feature unless overridden by WithFeature.
func NewFeatureGate(constraint string) (*FeatureGate, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, err
	}
	return &FeatureGate{fallback: c, constraints: map[string]*semver.Constraints{}}, nil
}

// WithFeature overrides the constraint used for one named feature (the
// names used in qSupported, e.g. "ReverseContinue", "QCatchSyscalls").
func (g *FeatureGate) WithFeature(feature, constraint string) (*FeatureGate, error) {
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, err
	}
	g.constraints[feature] = c
	return g, nil
}

// Allows reports whether clientVersion satisfies the constraint
// registered for feature (or the gate's fallback constraint, if no
// feature-specific one was registered). An unparseable clientVersion
// never satisfies a gate.
func (g *FeatureGate) Allows(clientVersion, feature string) bool {
	if g == nil {
		return true
	}
	constraint := g.fallback
	if fc, ok := g.constraints[feature]; ok {
		constraint = fc
	}
	if constraint == nil {
		return true
	}
	if clientVersion == "" {
		return false
	}
	v, err := semver.NewVersion(clientVersion)
	if err != nil {
		return false
	}
	return constraint.Check(v)
}
