package clock

import (
	"fmt"
	"time"
)

// DefaultDedupWindow is the anti-bounce window for live clock actions.
// Callers may pass a larger window for stricter policies.
const DefaultDedupWindow = time.Minute

// DedupCheck is the outcome of duplicate-submission detection.
type DedupCheck struct {
	Duplicate bool
	Reason    string
}

// CheckDuplicate reports whether an event arriving at now is a rapid
// resubmission after last. A nil last is never a duplicate. The window
// boundary is exclusive: an event exactly window after last is not a
// duplicate. The check ignores action type on purpose; it absorbs retries
// and double taps, while sequencing is the state machine's job.
func CheckDuplicate(last *time.Time, now time.Time, window time.Duration) DedupCheck {
	if last == nil {
		return DedupCheck{}
	}
	if elapsed := now.Sub(*last); elapsed < window {
		return DedupCheck{
			Duplicate: true,
			Reason:    fmt.Sprintf("previous event recorded %s ago, inside the %s window", elapsed.Round(time.Second), window),
		}
	}
	return DedupCheck{}
}
