package enums

import "fmt"

// DeviceType is the client device class of an item view.
type DeviceType string

const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
)

var validDeviceTypes = []DeviceType{
	DeviceDesktop,
	DeviceMobile,
	DeviceTablet,
}

// String implements fmt.Stringer.
func (v DeviceType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known device type.
func (v DeviceType) IsValid() bool {
	for _, candidate := range validDeviceTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseDeviceType converts raw input into DeviceType.
func ParseDeviceType(value string) (DeviceType, error) {
	for _, candidate := range validDeviceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid device type %q", value)
}

// DeviceTypes lists every known device class in a stable order.
func DeviceTypes() []DeviceType {
	return append([]DeviceType(nil), validDeviceTypes...)
}
