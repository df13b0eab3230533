package ctm

// DefaultVolumeTolerance is the accepted absolute drift of the bounding box
// volume for the quantizing tier.
const DefaultVolumeTolerance = 0.1

// TolerancePolicy 往返校验策略
type TolerancePolicy struct {
	// ExactValues requires bit identical vertex, normal and channel values.
	ExactValues bool `yaml:"exact_values"`
	// ReorderIndices compares indices after applying the encoder's triangle
	// rearrangement to the source indices.
	ReorderIndices bool `yaml:"reorder_indices"`
	CheckVolume    bool `yaml:"check_volume"`
	// VolumeTolerance is an absolute bound on |volume - volume'|.
	VolumeTolerance float64 `yaml:"volume_tolerance"`
}

var defaultPolicies = map[CompressionTier]TolerancePolicy{
	Raw:   {ExactValues: true},
	Tier1: {ExactValues: true, ReorderIndices: true, CheckVolume: true},
	Tier2: {CheckVolume: true, VolumeTolerance: DefaultVolumeTolerance},
}

// DefaultPolicies returns a fresh copy of the built in tier policies.
func DefaultPolicies() map[CompressionTier]TolerancePolicy {
	out := make(map[CompressionTier]TolerancePolicy, len(defaultPolicies))
	for t, p := range defaultPolicies {
		out[t] = p
	}
	return out
}

func PolicyFor(tier CompressionTier) (TolerancePolicy, bool) {
	p, ok := defaultPolicies[tier]
	return p, ok
}
