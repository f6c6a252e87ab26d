package playback

import (
	"time"
)

// Clock maps presentation timestamps (microseconds) to wall-clock time.
// The first Early call anchors the clock.
type Clock struct {
	Speed float64

	now       func() time.Time
	anchored  bool
	anchorPTS int64
	anchorAt  time.Time
}

func NewClock() *Clock {
	return &Clock{
		Speed: 1,
		now:   time.Now,
	}
}

func (c *Clock) Now() time.Time {
	return c.now()
}

// Early returns how long until the picture with pts is due; negative if
// it is late.
func (c *Clock) Early(pts int64) time.Duration {
	now := c.now()
	if !c.anchored {
		c.Reset(pts, now)
	}
	speed := c.Speed
	if speed <= 0 {
		speed = 1
	}
	elapsed := pts - c.anchorPTS
	offset := time.Duration(float64(elapsed) * float64(time.Microsecond) / speed)
	return c.anchorAt.Add(offset).Sub(now)
}

// Reset anchors pts to the moment at, e.g. after a seek.
func (c *Clock) Reset(pts int64, at time.Time) {
	c.anchored = true
	c.anchorPTS = pts
	c.anchorAt = at
}
