package enums

import "fmt"

// ItemStatus controls whether an item is visible in the catalog.
type ItemStatus string

const (
	ItemStatusDraft     ItemStatus = "draft"
	ItemStatusPublished ItemStatus = "published"
)

var validItemStatuses = []ItemStatus{
	ItemStatusDraft,
	ItemStatusPublished,
}

// String implements fmt.Stringer.
func (v ItemStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known item status.
func (v ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseItemStatus converts raw input into ItemStatus.
func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
