package enums

import "fmt"

// RentalStatus tracks a rental through its lifecycle.
type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "pending"
	RentalStatusConfirmed RentalStatus = "confirmed"
	RentalStatusActive    RentalStatus = "active"
	RentalStatusCompleted RentalStatus = "completed"
	RentalStatusCancelled RentalStatus = "cancelled"
)

var validRentalStatuses = []RentalStatus{
	RentalStatusPending,
	RentalStatusConfirmed,
	RentalStatusActive,
	RentalStatusCompleted,
	RentalStatusCancelled,
}

// String implements fmt.Stringer.
func (v RentalStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known rental status.
func (v RentalStatus) IsValid() bool {
	for _, candidate := range validRentalStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseRentalStatus converts raw input into RentalStatus.
func ParseRentalStatus(value string) (RentalStatus, error) {
	for _, candidate := range validRentalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rental status %q", value)
}

// IsTerminal reports whether no further transitions are allowed.
func (v RentalStatus) IsTerminal() bool {
	return v == RentalStatusCompleted || v == RentalStatusCancelled
}

// CanTransitionTo reports whether a rental may move from v to next. Rentals
// only move forward through pending, confirmed, active and completed, and
// any open rental may be cancelled.
func (v RentalStatus) CanTransitionTo(next RentalStatus) bool {
	if !v.IsValid() || !next.IsValid() || v.IsTerminal() {
		return false
	}
	if next == RentalStatusCancelled {
		return true
	}
	return rentalStatusRank(next) > rentalStatusRank(v)
}

func rentalStatusRank(v RentalStatus) int {
	for i, candidate := range validRentalStatuses {
		if candidate == v {
			return i
		}
	}
	return -1
}
