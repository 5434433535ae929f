package models

// Badge is the display side of an achievement. Unlock predicates live in the
// achievements package; this struct only carries what views need.
type Badge struct {
	ID          string
	Icon        string
	Name        string
	Description string
	Condition   string // how to unlock, shown while still locked
}
