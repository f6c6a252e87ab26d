// Package playback decides what to do with a decoded picture given how
// early (or late) it is relative to the playback clock.
package playback

import (
	"fmt"
	"time"
)

type Action int

const (
	ActionUndefined = Action(iota)

	// ActionWait means the picture is not due yet.
	ActionWait

	ActionRender

	// ActionDrop means release the picture without presenting it.
	ActionDrop

	// ActionDropToKeyframe means the playback is so far behind that
	// everything up to the next keyframe should be discarded.
	ActionDropToKeyframe
)

func (a Action) String() string {
	switch a {
	case ActionUndefined:
		return "undefined"
	case ActionWait:
		return "wait"
	case ActionRender:
		return "render"
	case ActionDrop:
		return "drop"
	case ActionDropToKeyframe:
		return "drop_to_keyframe"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

type Policy struct {
	// DropLateness is how late a picture may be and still be presented.
	DropLateness time.Duration

	// KeyframeLateness is how late a picture may be before skipping to
	// the next keyframe.
	KeyframeLateness time.Duration
}

var DefaultPolicy = Policy{
	DropLateness:     50 * time.Millisecond,
	KeyframeLateness: 500 * time.Millisecond,
}

// Decide maps the earliness (negative when late) to an action.
func (p Policy) Decide(early time.Duration) Action {
	switch {
	case early < -p.KeyframeLateness:
		return ActionDropToKeyframe
	case early < -p.DropLateness:
		return ActionDrop
	case early <= 0:
		return ActionRender
	default:
		return ActionWait
	}
}
