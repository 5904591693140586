package peers

import "strconv"

// Score is the trust a node places in one of its peers, based on the peer's
// last forwarded report.
type Score float64

const (
	// Negative means the peer's last report disagreed with ours.
	Negative Score = 0.0
	// Default means the peer has not reported on the last round.
	Default Score = 0.5
	// Positive means the peer's last report agreed with ours.
	Positive Score = 1.0
)

// Verdict returns Positive if agree is true, Negative otherwise.
func Verdict(agree bool) Score {
	if agree {
		return Positive
	}
	return Negative
}

// String ...
func (s Score) String() string {
	switch s {
	case Negative:
		return "negative"
	case Default:
		return "default"
	case Positive:
		return "positive"
	default:
		return strconv.FormatFloat(float64(s), 'f', 2, 64)
	}
}
