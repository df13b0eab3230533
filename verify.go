package ctm

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Verifier encodes meshes, decodes them again and checks the tier policy.
// It keeps no per run state, so one verifier may serve concurrent checks.
type Verifier struct {
	Codec    Codec
	Policies map[CompressionTier]TolerancePolicy
	// Comment is written into every encoded container.
	Comment string
}

func NewVerifier(c Codec) *Verifier {
	if c == nil {
		c = defaultCodec
	}
	return &Verifier{Codec: c, Policies: DefaultPolicies()}
}

func (v *Verifier) codec() Codec {
	if v.Codec == nil {
		return defaultCodec
	}
	return v.Codec
}

func (v *Verifier) policy(tier CompressionTier) (TolerancePolicy, error) {
	if v.Policies != nil {
		if p, ok := v.Policies[tier]; ok {
			return p, nil
		}
	}
	if p, ok := PolicyFor(tier); ok {
		return p, nil
	}
	return TolerancePolicy{}, fmt.Errorf("no tolerance policy for tier %s", tier)
}

// reorderer returns the triangle rearrangement the codec applies at tier.
func (v *Verifier) reorderer(tier CompressionTier) (TriangleReorderer, error) {
	ep, ok := v.codec().(EncoderProvider)
	if !ok {
		return nil, fmt.Errorf("codec %T does not expose its encoders", v.codec())
	}
	enc, err := ep.Encoder(tier)
	if err != nil {
		return nil, err
	}
	r, ok := enc.(TriangleReorderer)
	if !ok {
		return nil, fmt.Errorf("%s encoder does not rearrange triangles", tier)
	}
	return r, nil
}

type comparison struct {
	mesh    string
	tier    CompressionTier
	stage   string
	policy  TolerancePolicy
	reorder TriangleReorderer
	out     []*VerificationMismatch
}

func (c *comparison) add(invariant, channel string, index, count int, expected, observed interface{}) {
	c.out = append(c.out, &VerificationMismatch{
		Mesh:      c.mesh,
		Tier:      c.tier,
		Stage:     c.stage,
		Invariant: invariant,
		Channel:   channel,
		Index:     index,
		Count:     count,
		Expected:  expected,
		Observed:  observed,
	})
}

func (c *comparison) structure(exp, obs *ContainerMesh) bool {
	n := len(c.out)
	if exp.VertexCount() != obs.VertexCount() {
		c.add(InvariantVertexCount, "", -1, 0, exp.VertexCount(), obs.VertexCount())
	}
	if exp.HasNormals() != obs.HasNormals() {
		c.add(InvariantNormalPresence, "", -1, 0, exp.HasNormals(), obs.HasNormals())
	}
	if len(exp.Indices) != len(obs.Indices) {
		c.add(InvariantIndexCount, "", -1, 0, len(exp.Indices), len(obs.Indices))
	}
	if len(exp.UVMaps) != len(obs.UVMaps) {
		c.add(InvariantUVMapCount, "", -1, 0, len(exp.UVMaps), len(obs.UVMaps))
	} else {
		for i := range exp.UVMaps {
			if len(exp.UVMaps[i].Values) != len(obs.UVMaps[i].Values) {
				c.add(InvariantUVMapLength, exp.UVMaps[i].Name, -1, 0, len(exp.UVMaps[i].Values), len(obs.UVMaps[i].Values))
			}
		}
	}
	if len(exp.Attributes) != len(obs.Attributes) {
		c.add(InvariantAttrCount, "", -1, 0, len(exp.Attributes), len(obs.Attributes))
	} else {
		for i := range exp.Attributes {
			if len(exp.Attributes[i].Values) != len(obs.Attributes[i].Values) {
				c.add(InvariantAttrLength, exp.Attributes[i].Name, -1, 0, len(exp.Attributes[i].Values), len(obs.Attributes[i].Values))
			}
		}
	}
	return len(c.out) == n
}

func (c *comparison) floats(invariant, channel string, exp, obs []float32) {
	first, count := -1, 0
	for i := range exp {
		if i >= len(obs) || math.Float32bits(exp[i]) != math.Float32bits(obs[i]) {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if count > 0 {
		var o interface{}
		if first < len(obs) {
			o = obs[first]
		}
		c.add(invariant, channel, first, count, exp[first], o)
	}
}

func (c *comparison) indices(exp, obs []uint32) {
	first, count := -1, 0
	for i := range exp {
		if i >= len(obs) || exp[i] != obs[i] {
			if first < 0 {
				first = i
			}
			count++
		}
	}
	if count > 0 {
		var o interface{}
		if first < len(obs) {
			o = obs[first]
		}
		c.add(InvariantIndices, "", first, count, exp[first], o)
	}
}

func (c *comparison) values(exp, obs *ContainerMesh) {
	if !c.policy.ExactValues {
		return
	}
	c.floats(InvariantVertices, "", exp.Vertices, obs.Vertices)
	if exp.HasNormals() {
		c.floats(InvariantNormals, "", exp.Normals, obs.Normals)
	}
	want := exp.Indices
	if c.policy.ReorderIndices && c.reorder != nil {
		want = c.reorder.RearrangeTriangles(exp.Indices)
	}
	c.indices(want, obs.Indices)
	for i := range exp.UVMaps {
		c.floats(InvariantUVMap, exp.UVMaps[i].Name, exp.UVMaps[i].Values, obs.UVMaps[i].Values)
	}
	for i := range exp.Attributes {
		c.floats(InvariantAttribute, exp.Attributes[i].Name, exp.Attributes[i].Values, obs.Attributes[i].Values)
	}
}

func (c *comparison) volume(exp, obs *BoundingBox) {
	if !c.policy.CheckVolume {
		return
	}
	ve, vo := exp.Volume(), obs.Volume()
	if math.Abs(ve-vo) > c.policy.VolumeTolerance {
		c.add(InvariantVolume, "", -1, 0, ve, vo)
	}
}

func (c *comparison) meshes(exp, obs *ContainerMesh, expBound, obsBound *BoundingBox) {
	if c.structure(exp, obs) {
		c.values(exp, obs)
	}
	c.volume(expBound, obsBound)
}

func (v *Verifier) newComparison(name string, tier CompressionTier, stage string) (*comparison, error) {
	p, err := v.policy(tier)
	if err != nil {
		return nil, err
	}
	c := &comparison{mesh: name, tier: tier, stage: stage, policy: p}
	if p.ReorderIndices {
		if c.reorder, err = v.reorderer(tier); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (v *Verifier) roundTrip(m *ContainerMesh, tier CompressionTier) ([]byte, *ContainerMesh, error) {
	data, err := v.codec().Encode(m, v.Comment, tier)
	if err != nil {
		return nil, nil, err
	}
	back, err := v.codec().Decode(data)
	if err != nil {
		return nil, nil, err
	}
	return data, back, nil
}

// VerifyContainer encodes m at tier, decodes the bytes and compares the result
// with m. The error reports failures that stopped the check, not mismatches.
func (v *Verifier) VerifyContainer(m *ContainerMesh, tier CompressionTier) ([]*VerificationMismatch, error) {
	if m == nil {
		return nil, &NullSourceError{What: "mesh"}
	}
	c, err := v.newComparison("", tier, StageContainer)
	if err != nil {
		return nil, err
	}
	_, back, err := v.roundTrip(m, tier)
	if err != nil {
		return nil, err
	}
	c.meshes(m, back, m.BoundingBox(), back.BoundingBox())
	v.logMismatches(c.out)
	return c.out, nil
}

// VerifyEngineMesh checks mesh at tier twice: the decoded container against
// the extracted source, and a freshly imported engine mesh against mesh.
func (v *Verifier) VerifyEngineMesh(mesh *EngineMesh, tier CompressionTier) *Result {
	res := &Result{Tier: tier}
	if mesh == nil || mesh.Data == nil {
		res.Err = &NullSourceError{What: "engine mesh"}
		return res
	}
	res.Mesh = mesh.Name

	src, err := Extract(mesh)
	if err != nil {
		res.Err = err
		return res
	}
	direct, err := v.newComparison(mesh.Name, tier, StageContainer)
	if err != nil {
		res.Err = err
		return res
	}
	data, back, err := v.roundTrip(src, tier)
	if err != nil {
		res.Err = err
		return res
	}
	direct.meshes(src, back, src.BoundingBox(), back.BoundingBox())
	res.Mismatches = append(res.Mismatches, direct.out...)

	imported, err := NewImporter().SetCodec(v.codec()).LoadSource(NewBytesSource(mesh.Name, data))
	if err != nil {
		res.Err = err
		return res
	}
	obs, err := Extract(imported)
	if err != nil {
		res.Err = err
		return res
	}
	engine, err := v.newComparison(mesh.Name, tier, StageEngine)
	if err != nil {
		res.Err = err
		return res
	}
	if imported.TextureUnitCount() != mesh.TextureUnitCount() {
		engine.add(InvariantUVMapCount, "texture units", -1, 0, mesh.TextureUnitCount(), imported.TextureUnitCount())
	}
	engine.meshes(src, obs, modelBound(mesh, src), modelBound(imported, obs))
	res.Mismatches = append(res.Mismatches, engine.out...)

	v.logMismatches(res.Mismatches)
	return res
}

// modelBound is the bound the engine holds for em, computed from m when unset.
func modelBound(em *EngineMesh, m *ContainerMesh) *BoundingBox {
	if em.Bound != nil {
		return em.Bound
	}
	return m.BoundingBox()
}

// VerifyBatch checks every mesh at every tier and never stops at the first
// failure.
func (v *Verifier) VerifyBatch(meshes []*EngineMesh, tiers []CompressionTier) *Report {
	if len(tiers) == 0 {
		tiers = Tiers()
	}
	rep := &Report{}
	for _, m := range meshes {
		for _, t := range tiers {
			rep.Add(v.VerifyEngineMesh(m, t))
		}
	}
	Logger().Info("ctm verification finished",
		zap.Int("checks", len(rep.Results)),
		zap.Int("failed", len(rep.Failed())))
	return rep
}

func (v *Verifier) logMismatches(ms []*VerificationMismatch) {
	for _, m := range ms {
		Logger().Warn("ctm round trip mismatch",
			zap.String("mesh", m.Mesh),
			zap.Stringer("tier", m.Tier),
			zap.String("stage", m.Stage),
			zap.String("invariant", m.Invariant),
			zap.Int("index", m.Index),
			zap.Any("expected", m.Expected),
			zap.Any("observed", m.Observed))
	}
}
