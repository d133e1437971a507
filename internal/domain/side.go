package domain

// Side identifies one outcome of a binary market.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// String returns the string representation of Side.
func (s Side) String() string {
	return string(s)
}

// IsValid checks if the side is a valid value.
func (s Side) IsValid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other outcome.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}
