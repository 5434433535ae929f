package models

// VaultPosition is one open position in the fund's account snapshot.
type VaultPosition struct {
	Coin          string
	EntryPrice    float64
	Size          float64
	Leverage      float64
	UnrealizedPnL float64
}

// VaultSummary is the small set of numbers the data widget shows. All fields
// default to zero when the upstream documents are missing them.
type VaultSummary struct {
	AccountValue float64
	MarginUsed   float64
	APR          float64
	AllTimePnL   float64
	Positions    []VaultPosition
}
