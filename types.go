package ctm

import (
	"fmt"
	"strings"
)

const CTM_SIGNATURE string = "OCTM"
const CTMEXT string = ".ctm"
const FORMAT_VERSION int32 = 5

const (
	FLAG_HAS_NORMALS = 0x00000001
)

const (
	DEFAULT_VERTEX_PRECISION    = 10
	DEFAULT_NORMAL_PRECISION    = 8
	DEFAULT_UV_PRECISION        = 12
	DEFAULT_ATTRIBUTE_PRECISION = 8
)

// 解码时允许的最大元素数量
const (
	MAX_VERTEX_COUNT   = 1 << 26
	MAX_TRIANGLE_COUNT = 1 << 26
	MAX_CHANNEL_COUNT  = 64
	MAX_COMPONENTS     = 16
	MAX_PRECISION      = 30
	MAX_STRING_LENGTH  = 1 << 16
)

var (
	sectionIndices    = [4]byte{'I', 'N', 'D', 'X'}
	sectionVertices   = [4]byte{'V', 'E', 'R', 'T'}
	sectionNormals    = [4]byte{'N', 'O', 'R', 'M'}
	sectionTexCoords  = [4]byte{'T', 'E', 'X', 'C'}
	sectionAttributes = [4]byte{'A', 'T', 'T', 'R'}
	sectionMG2Header  = [4]byte{'M', 'G', '2', 'H'}
)

// CompressionTier 压缩等级
type CompressionTier int

const (
	Raw CompressionTier = iota
	Tier1
	Tier2
)

var tierMethods = map[CompressionTier][4]byte{
	Raw:   {'R', 'A', 'W', 0},
	Tier1: {'M', 'G', '1', 0},
	Tier2: {'M', 'G', '2', 0},
}

// Tiers lists every tier in increasing order of compression.
func Tiers() []CompressionTier {
	return []CompressionTier{Raw, Tier1, Tier2}
}

func (t CompressionTier) Method() [4]byte {
	return tierMethods[t]
}

func (t CompressionTier) String() string {
	switch t {
	case Raw:
		return "RAW"
	case Tier1:
		return "MG1"
	case Tier2:
		return "MG2"
	default:
		return fmt.Sprintf("CompressionTier(%d)", int(t))
	}
}

func (t CompressionTier) Valid() bool {
	_, ok := tierMethods[t]
	return ok
}

// ParseTier accepts the method names (raw, mg1, mg2) as well as tier0..tier2.
func ParseTier(s string) (CompressionTier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "raw", "tier0":
		return Raw, nil
	case "mg1", "tier1":
		return Tier1, nil
	case "mg2", "tier2":
		return Tier2, nil
	}
	return Raw, fmt.Errorf("unknown compression tier %q", s)
}

func tierForMethod(m [4]byte) (CompressionTier, bool) {
	for t, mt := range tierMethods {
		if mt == m {
			return t, true
		}
	}
	return Raw, false
}
