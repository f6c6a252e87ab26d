package av1bridge

import (
	"go.uber.org/atomic"
)

// Statistics is a snapshot of the session telemetry.
type Statistics struct {
	PacketsSubmitted      uint64 `json:",omitempty"`
	PacketsAccepted       uint64 `json:",omitempty"`
	PacketsBackpressured  uint64 `json:",omitempty"`
	PacketsRejected       uint64 `json:",omitempty"`
	PacketsDroppedAtFlush uint64 `json:",omitempty"`
	BytesSubmitted        uint64 `json:",omitempty"`
	BytesAccepted         uint64 `json:",omitempty"`
	PicturesExtracted     uint64 `json:",omitempty"`
	PicturesStarved       uint64 `json:",omitempty"`
	FramesPresented       uint64 `json:",omitempty"`
	FramesNeverDecoded    uint64 `json:",omitempty"`
	LastSubmittedPTS      int64
}

// CommonsStatistics are the counters behind Statistics. All of them only
// grow.
type CommonsStatistics struct {
	PacketsSubmitted      atomic.Uint64
	PacketsAccepted       atomic.Uint64
	PacketsBackpressured  atomic.Uint64
	PacketsRejected       atomic.Uint64
	PacketsDroppedAtFlush atomic.Uint64
	BytesSubmitted        atomic.Uint64
	BytesAccepted         atomic.Uint64
	PicturesExtracted     atomic.Uint64
	PicturesStarved       atomic.Uint64
	FramesPresented       atomic.Uint64
	FramesNeverDecoded    atomic.Uint64
	LastSubmittedPTS      atomic.Int64
}

func (stats *CommonsStatistics) Convert() Statistics {
	return Statistics{
		PacketsSubmitted:      stats.PacketsSubmitted.Load(),
		PacketsAccepted:       stats.PacketsAccepted.Load(),
		PacketsBackpressured:  stats.PacketsBackpressured.Load(),
		PacketsRejected:       stats.PacketsRejected.Load(),
		PacketsDroppedAtFlush: stats.PacketsDroppedAtFlush.Load(),
		BytesSubmitted:        stats.BytesSubmitted.Load(),
		BytesAccepted:         stats.BytesAccepted.Load(),
		PicturesExtracted:     stats.PicturesExtracted.Load(),
		PicturesStarved:       stats.PicturesStarved.Load(),
		FramesPresented:       stats.FramesPresented.Load(),
		FramesNeverDecoded:    stats.FramesNeverDecoded.Load(),
		LastSubmittedPTS:      stats.LastSubmittedPTS.Load(),
	}
}
