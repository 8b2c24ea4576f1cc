package enums

import "fmt"

// Availability is the rentable state of a managed item.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

var validAvailabilities = []Availability{
	AvailabilityAvailable,
	AvailabilityUnavailable,
}

// String implements fmt.Stringer.
func (v Availability) String() string {
	return string(v)
}

// IsValid reports whether the value is a known availability.
func (v Availability) IsValid() bool {
	for _, candidate := range validAvailabilities {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseAvailability converts raw input into Availability.
func ParseAvailability(value string) (Availability, error) {
	for _, candidate := range validAvailabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid availability %q", value)
}
