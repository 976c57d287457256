package enums

import "fmt"

// PosStatus maps to the pos_status enum in Postgres. Exactly one value is
// active per store at any time.
type PosStatus string

const (
	PosStatusOpen      PosStatus = "open"
	PosStatusClosed    PosStatus = "closed"
	PosStatusBreak     PosStatus = "break"
	PosStatusPreparing PosStatus = "preparing"
)

var validPosStatuses = []PosStatus{
	PosStatusOpen,
	PosStatusClosed,
	PosStatusBreak,
	PosStatusPreparing,
}

// String implements fmt.Stringer.
func (p PosStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PosStatus.
func (p PosStatus) IsValid() bool {
	for _, candidate := range validPosStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// RequiresImpactMetadata reports whether transitions into this status must
// carry revenue-loss and affected-order figures.
func (p PosStatus) RequiresImpactMetadata() bool {
	return p == PosStatusClosed || p == PosStatusBreak
}

// ParsePosStatus converts raw input into a PosStatus.
func ParsePosStatus(value string) (PosStatus, error) {
	for _, candidate := range validPosStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid pos status %q", value)
}
