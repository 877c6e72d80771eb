package entity

// Location is the result of resolving a free-text address.
type Location struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
}
