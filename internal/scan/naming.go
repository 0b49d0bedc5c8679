package scan

import "strings"

// Asset file naming. Real assets carry a single suffix; downloads in
// flight carry the suffix plus a transfer marker; a known failure mode
// of the downloader leaves the suffix duplicated.
const (
	AssetSuffix  = ".dfm"
	PartSuffix   = ".part"
	DoubleSuffix = AssetSuffix + AssetSuffix
	InFlightName = AssetSuffix + PartSuffix
)

// NameShape describes how a candidate's file name relates to its
// canonical form.
type NameShape int

const (
	ShapeSingle NameShape = iota // model.dfm
	ShapeDouble                  // model.dfm.dfm
	ShapePart                    // model.dfm.part
)

func (s NameShape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeDouble:
		return "double-suffix"
	case ShapePart:
		return "in-flight"
	default:
		return "unknown"
	}
}

// SplitName extracts the logical name and shape from a file base name.
// The second return is false when the name does not match any asset
// pattern at all.
func SplitName(base string) (string, NameShape, bool) {
	switch {
	case strings.HasSuffix(base, DoubleSuffix):
		return strings.TrimSuffix(base, DoubleSuffix), ShapeDouble, true
	case strings.HasSuffix(base, InFlightName):
		return strings.TrimSuffix(base, InFlightName), ShapePart, true
	case strings.HasSuffix(base, AssetSuffix):
		return strings.TrimSuffix(base, AssetSuffix), ShapeSingle, true
	default:
		return "", ShapeSingle, false
	}
}

// CanonicalName returns the correctly single-suffixed file name for a
// logical name.
func CanonicalName(logical string) string {
	return logical + AssetSuffix
}
