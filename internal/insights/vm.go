package insights

// Analysis holds the rate and bracket figures for one period or aggregate.
type Analysis struct {
	Revenue               float64 `json:"revenue"`
	TotalTax              float64 `json:"totalTax"`
	Trailing12Months      float64 `json:"trailing12Months"`
	EffectiveRate         float64 `json:"effectiveRate"`
	NetMargin             float64 `json:"netMargin"`
	Bracket               int     `json:"bracket"`
	OverLimit             bool    `json:"overLimit"`
	BracketCeiling        float64 `json:"bracketCeiling"`
	DistanceToNextBracket float64 `json:"distanceToNextBracket"`
	TransitionRisk        bool    `json:"transitionRisk"`
}

// Direction classifies a growth signal.
type Direction string

const (
	DirectionGrowth       Direction = "growth"
	DirectionDecline      Direction = "decline"
	DirectionStable       Direction = "stable"
	DirectionInsufficient Direction = "insufficient"
)

// GrowthSignal compares the latest value with its trailing mean.
type GrowthSignal struct {
	Direction Direction `json:"direction"`
	Latest    float64   `json:"latest"`
	Baseline  float64   `json:"baseline"`
	Deviation float64   `json:"deviation"`
	Periods   int       `json:"periods"`
	Threshold float64   `json:"threshold"`
}

// Share is one slice of a composition.
type Share struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Amount  float64 `json:"amount"`
	Percent float64 `json:"percent"`
}
