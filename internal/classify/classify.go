// Package classify decides whether a discovered asset file is real,
// a placeholder stub, an unfinished transfer, or a misnamed repair
// case. Size is the primary signal and is checked before any content
// probe: structural parsing of multi-hundred-megabyte binaries is
// expensive and unreliable, while no real asset in this domain is
// small.
package classify

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/safeio"
)

// Classification thresholds. Real assets are never below MinValidSize;
// placeholder stubs are never above PlaceholderMaxSize.
const (
	MinValidSize       = 100 * 1024 * 1024
	PlaceholderMaxSize = 1024
)

// Class is the integrity verdict for one candidate.
type Class int

const (
	Valid Class = iota
	Placeholder
	Incomplete
	MalformedName
)

func (c Class) String() string {
	switch c {
	case Valid:
		return "valid"
	case Placeholder:
		return "placeholder"
	case Incomplete:
		return "incomplete"
	case MalformedName:
		return "malformed-name"
	default:
		return "unknown"
	}
}

// Result carries the verdict. Suspect marks the mid-size band between
// the two thresholds: presumptively bad, flagged for manual review,
// never auto-deleted.
type Result struct {
	Class   Class
	Suspect bool
	Note    string
}

// placeholderStub is the shape of the small JSON stand-in the
// downloader leaves before a real asset arrives.
type placeholderStub struct {
	Placeholder bool   `json:"placeholder"`
	Name        string `json:"name"`
}

// Classifier applies the tiered size-first heuristic.
type Classifier struct {
	minValidSize       int64
	placeholderMaxSize int64
}

// New creates a classifier. Non-positive thresholds fall back to the
// package defaults.
func New(minValidSize, placeholderMaxSize int64) *Classifier {
	if minValidSize <= 0 {
		minValidSize = MinValidSize
	}
	if placeholderMaxSize <= 0 {
		placeholderMaxSize = PlaceholderMaxSize
	}
	return &Classifier{minValidSize: minValidSize, placeholderMaxSize: placeholderMaxSize}
}

// MinValid returns the configured minimum real-asset size.
func (c *Classifier) MinValid() int64 { return c.minValidSize }

// Classify tags one candidate. Name shape outranks size: a duplicated
// suffix marks a repair case whatever the file holds, and a transfer
// marker means the bytes cannot be trusted yet.
func (c *Classifier) Classify(cand scan.Candidate) Result {
	switch cand.Shape {
	case scan.ShapeDouble:
		return Result{Class: MalformedName, Note: "duplicated asset suffix"}
	case scan.ShapePart:
		return Result{Class: Incomplete, Note: "transfer-in-progress marker"}
	}

	switch {
	case cand.SizeBytes < c.placeholderMaxSize:
		return c.probeStub(cand)
	case cand.SizeBytes >= c.minValidSize:
		return Result{Class: Valid}
	default:
		return Result{
			Class:   Placeholder,
			Suspect: true,
			Note:    fmt.Sprintf("mid-sized file (%d bytes) is neither stub nor real asset; flagged for manual review", cand.SizeBytes),
		}
	}
}

// probeStub parses a tiny file as JSON looking for the explicit
// placeholder marker. A parse failure still means placeholder: a real
// asset is never this small. The read is containment-checked against
// the candidate's storage root.
func (c *Classifier) probeStub(cand scan.Candidate) Result {
	base := cand.Root
	if base == "" {
		base = filepath.Dir(cand.Path)
	}
	data, err := safeio.ReadFileContained(base, cand.Path)
	if err != nil {
		return Result{Class: Placeholder, Note: fmt.Sprintf("unreadable small file: %v", err)}
	}

	var stub placeholderStub
	if err := json.Unmarshal(data, &stub); err != nil {
		return Result{Class: Placeholder, Note: "small file with unrecognized content"}
	}
	if stub.Placeholder {
		return Result{Class: Placeholder, Note: "explicit placeholder marker"}
	}
	return Result{Class: Placeholder, Note: "small structured file without real payload"}
}
