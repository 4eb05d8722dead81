// Package pacing varies crawl cadence between result pages.
//
// Decide picks the action for a page index; Pacer performs it against the
// browser. Pacing waits are separate from synchronization waits: turning
// pacing off never affects correctness.
package pacing

// Action is a pacing behaviour run after a page is extracted.
type Action int

const (
	RandomScroll Action = iota
	LongPause
	VisitRandomProfiles
)

// ReservedPageIndex never gets a LongPause. Older crawl state files used
// this page number to mean "blocked", so pacing still steps around it.
const ReservedPageIndex = 100

func (a Action) String() string {
	switch a {
	case RandomScroll:
		return "random_scroll"
	case LongPause:
		return "long_pause"
	case VisitRandomProfiles:
		return "visit_random_profiles"
	default:
		return "unknown"
	}
}

// Decide returns the pacing action for page. Rules are checked in order.
func Decide(page int) Action {
	switch {
	case page%8 == 0:
		return VisitRandomProfiles
	case page%10 == 0 && page != ReservedPageIndex:
		return LongPause
	default:
		return RandomScroll
	}
}
