package enums

import "fmt"

// TrafficSource is the channel an item view arrived through.
type TrafficSource string

const (
	TrafficSourceOrganic  TrafficSource = "organic"
	TrafficSourceDirect   TrafficSource = "direct"
	TrafficSourceSocial   TrafficSource = "social"
	TrafficSourceEmail    TrafficSource = "email"
	TrafficSourceReferral TrafficSource = "referral"
	TrafficSourcePaid     TrafficSource = "paid"
)

var validTrafficSources = []TrafficSource{
	TrafficSourceOrganic,
	TrafficSourceDirect,
	TrafficSourceSocial,
	TrafficSourceEmail,
	TrafficSourceReferral,
	TrafficSourcePaid,
}

// String implements fmt.Stringer.
func (v TrafficSource) String() string {
	return string(v)
}

// IsValid reports whether the value is a known traffic source.
func (v TrafficSource) IsValid() bool {
	for _, candidate := range validTrafficSources {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseTrafficSource converts raw input into TrafficSource.
func ParseTrafficSource(value string) (TrafficSource, error) {
	for _, candidate := range validTrafficSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid traffic source %q", value)
}

// TrafficSources lists every known source in a stable order.
func TrafficSources() []TrafficSource {
	return append([]TrafficSource(nil), validTrafficSources...)
}
