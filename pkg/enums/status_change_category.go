package enums

import "fmt"

// StatusChangeCategory distinguishes owner-initiated transitions from ones
// fired by the auto scheduler.
type StatusChangeCategory string

const (
	StatusChangeCategoryManual StatusChangeCategory = "manual"
	StatusChangeCategoryAuto   StatusChangeCategory = "auto"
)

var validStatusChangeCategories = []StatusChangeCategory{
	StatusChangeCategoryManual,
	StatusChangeCategoryAuto,
}

// String implements fmt.Stringer.
func (c StatusChangeCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known StatusChangeCategory.
func (c StatusChangeCategory) IsValid() bool {
	for _, candidate := range validStatusChangeCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseStatusChangeCategory converts raw input into a StatusChangeCategory.
func ParseStatusChangeCategory(value string) (StatusChangeCategory, error) {
	for _, candidate := range validStatusChangeCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid status change category %q", value)
}
