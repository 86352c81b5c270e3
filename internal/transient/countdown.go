package transient

import (
	"context"
	"time"

	"github.com/farellandr/storefront/internal/clock"
	"github.com/farellandr/storefront/internal/models"
)

// PromotionLength is how long the first batch's promotional price runs.
const PromotionLength = 7 * 24 * time.Hour

type TimeLeft struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func (t TimeLeft) Zero() bool {
	return t == TimeLeft{}
}

type Countdown struct {
	Deadline time.Time
}

// PromotionCountdown returns the countdown for e's first batch. ok is false
// when e has no batches.
func PromotionCountdown(e models.Event) (Countdown, bool) {
	if len(e.Batches) == 0 {
		return Countdown{}, false
	}
	return Countdown{Deadline: e.Batches[0].CreatedAt.Add(PromotionLength)}, true
}

// Remaining splits the time until the deadline into whole units. It is zero
// once the deadline has passed.
func (c Countdown) Remaining(now time.Time) TimeLeft {
	d := c.Deadline.Sub(now)
	if d <= 0 {
		return TimeLeft{}
	}
	secs := int64(d / time.Second)
	return TimeLeft{
		Days:    int(secs / 86400),
		Hours:   int(secs / 3600 % 24),
		Minutes: int(secs / 60 % 60),
		Seconds: int(secs % 60),
	}
}

// Visible is false when nothing is left to count down.
func (c Countdown) Visible(now time.Time) bool {
	return !c.Remaining(now).Zero()
}

// Run calls fn with the remaining time immediately and then once per
// interval. It returns when the countdown reaches zero, fn returns false, or
// ctx is done. The ticker never outlives Run.
func (c Countdown) Run(ctx context.Context, clk clock.Clock, interval time.Duration, fn func(TimeLeft) bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		left := c.Remaining(clk.Now())
		if left.Zero() || !fn(left) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
