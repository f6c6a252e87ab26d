package libav

import (
	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/av1bridge/pool"
)

var packetPool = pool.NewPool(
	astiav.AllocPacket,
	func(p *astiav.Packet) { p.Unref() },
	func(p *astiav.Packet) { p.Free() },
)

var framePool = pool.NewPool(
	astiav.AllocFrame,
	func(f *astiav.Frame) { f.Unref() },
	func(f *astiav.Frame) { f.Free() },
)
