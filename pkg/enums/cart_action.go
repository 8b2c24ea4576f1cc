package enums

import "fmt"

// CartAction records what a visitor did to their cart.
type CartAction string

const (
	CartActionAdd    CartAction = "add"
	CartActionRemove CartAction = "remove"
)

var validCartActions = []CartAction{
	CartActionAdd,
	CartActionRemove,
}

// String implements fmt.Stringer.
func (v CartAction) String() string {
	return string(v)
}

// IsValid reports whether the value is a known cart action.
func (v CartAction) IsValid() bool {
	for _, candidate := range validCartActions {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseCartAction converts raw input into CartAction.
func ParseCartAction(value string) (CartAction, error) {
	for _, candidate := range validCartActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cart action %q", value)
}
