package model

// Service is a bookable recovery session type. Capacity is the maximum
// number of simultaneous occupants per slot.
type Service struct {
	ID              string
	Title           string
	Price60         int
	Price30         int
	PreviousPrice60 int
	PreviousPrice30 int
	Capacity        int
	IsActive        bool
}
