package domain

import dErrors "origo/pkg/domain-errors"

// ValueSource records where a field value came from.
type ValueSource string

const (
	// SourceManual: typed in by a back-office worker.
	SourceManual ValueSource = "manual"
	// SourceOCR: extracted from a scanned document.
	SourceOCR ValueSource = "ocr"
	// SourceSystem: written by the engine itself, e.g. when a reviewer
	// re-asserts a value during conflict resolution or a sync applies a
	// remote change.
	SourceSystem ValueSource = "system"
)

// ParseValueSource validates and returns a ValueSource.
func ParseValueSource(s string) (ValueSource, error) {
	switch src := ValueSource(s); src {
	case SourceManual, SourceOCR, SourceSystem:
		return src, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown value source: "+s)
	}
}

func (s ValueSource) String() string { return string(s) }

// Valid reports whether the source is a known enum value.
func (s ValueSource) Valid() bool {
	switch s {
	case SourceManual, SourceOCR, SourceSystem:
		return true
	default:
		return false
	}
}
