// Package signal defines the canonical trading vocabulary shared between the
// derivation pipeline and its presentation callers.
package signal

import "time"

// Direction is the single three-state signal enum used throughout the core.
// Option-style labels (CALL/PUT) exist only at the presentation boundary.
type Direction string

const (
	// Buy indicates a long bias on the resolved contract.
	Buy Direction = "BUY"
	// Sell indicates a short bias on the resolved contract.
	Sell Direction = "SELL"
	// Hold indicates no actionable signal.
	Hold Direction = "HOLD"
)

// Directional reports whether the direction calls for a trade.
func (d Direction) Directional() bool { return d == Buy || d == Sell }

// OptionLabel maps the canonical direction to the option-buying vocabulary
// used by FnO dashboards: BUY reads as CALL, SELL as PUT.
func (d Direction) OptionLabel() string {
	switch d {
	case Buy:
		return "CALL"
	case Sell:
		return "PUT"
	default:
		return "HOLD"
	}
}

// Tick models a single last-traded-price update from the venue stream.
type Tick struct {
	Symbol string
	Token  string
	Price  float64
	Ts     time.Time
}

// Levels bounds a directional signal's intended exit range. Entry, Target,
// and Stop are always populated together.
type Levels struct {
	Entry  float64 `json:"entry"`
	Target float64 `json:"target"`
	Stop   float64 `json:"stop"`
}

// Signal is the advisory output of the classifier: a direction plus, when
// directional, the price levels derived from the same entry reference.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Levels    *Levels   `json:"levels,omitempty"`
	Reason    string    `json:"reason"`
	Ts        time.Time `json:"ts"`
}
