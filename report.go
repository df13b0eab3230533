package ctm

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

const (
	InvariantVertexCount    = "vertex count"
	InvariantNormalPresence = "normal presence"
	InvariantIndexCount     = "index count"
	InvariantUVMapCount     = "uv map count"
	InvariantUVMapLength    = "uv map length"
	InvariantAttrCount      = "attribute map count"
	InvariantAttrLength     = "attribute map length"
	InvariantVertices       = "vertices"
	InvariantNormals        = "normals"
	InvariantIndices        = "indices"
	InvariantUVMap          = "uv map"
	InvariantAttribute      = "attribute map"
	InvariantVolume         = "bounding volume"
)

const (
	StageContainer = "container"
	StageEngine    = "engine"
)

// VerificationMismatch describes one violated round trip invariant.
type VerificationMismatch struct {
	Mesh      string
	Tier      CompressionTier
	Stage     string
	Invariant string
	Channel   string
	// Index is the first differing element, -1 for whole array invariants.
	Index int
	// Count is the number of differing elements.
	Count    int
	Expected interface{}
	Observed interface{}
}

func (m *VerificationMismatch) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", m.Tier, m.Stage)
	if m.Mesh != "" {
		fmt.Fprintf(&b, " '%s'", m.Mesh)
	}
	b.WriteString(": ")
	b.WriteString(m.Invariant)
	if m.Channel != "" {
		fmt.Fprintf(&b, " %s", m.Channel)
	}
	if m.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", m.Index)
	}
	fmt.Fprintf(&b, ": expected %v, observed %v", m.Expected, m.Observed)
	if m.Count > 1 {
		fmt.Fprintf(&b, " (%d elements differ)", m.Count)
	}
	return b.String()
}

// Result is the outcome of one mesh checked at one tier.
type Result struct {
	Mesh       string
	Tier       CompressionTier
	Mismatches []*VerificationMismatch
	// Err holds a failure that prevented the check from completing.
	Err error
}

func (r *Result) OK() bool {
	return r.Err == nil && len(r.Mismatches) == 0
}

func (r *Result) combined() error {
	var err error
	if r.Err != nil {
		err = multierr.Append(err, fmt.Errorf("%s '%s': %w", r.Tier, r.Mesh, r.Err))
	}
	for _, m := range r.Mismatches {
		err = multierr.Append(err, m)
	}
	return err
}

// Report collects every result of a batch.
type Report struct {
	Results []*Result
}

func (r *Report) Add(res *Result) {
	r.Results = append(r.Results, res)
}

func (r *Report) Failed() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

func (r *Report) OK() bool {
	return len(r.Failed()) == 0
}

// Err combines all failures, nil when every check passed.
func (r *Report) Err() error {
	var err error
	for _, res := range r.Results {
		err = multierr.Append(err, res.combined())
	}
	return err
}

func (r *Report) String() string {
	var b strings.Builder
	for _, res := range r.Results {
		status := "ok"
		if !res.OK() {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "%-4s %-4s %s\n", status, res.Tier, res.Mesh)
		if res.Err != nil {
			fmt.Fprintf(&b, "     error: %v\n", res.Err)
		}
		for _, m := range res.Mismatches {
			fmt.Fprintf(&b, "     %v\n", m)
		}
	}
	fmt.Fprintf(&b, "%d checks, %d failed\n", len(r.Results), len(r.Failed()))
	return b.String()
}
