package decoder

import (
	"sync"
)

// Data is a compressed packet.
type Data struct {
	Buf []byte

	// PTS is the presentation timestamp in microseconds, echoed back by
	// the picture decoded from this packet.
	PTS int64

	// Opaque is backend specific.
	Opaque any

	unrefOnce sync.Once
	unref     func(*Data)
}

// NewData wraps buf; unref (if not nil) is called once on the first Unref.
func NewData(buf []byte, unref func(*Data)) *Data {
	return &Data{
		Buf:   buf,
		unref: unref,
	}
}

// Unref returns the buffer to its allocator. It must not be called after
// the data was accepted by SendData. Safe on nil and idempotent.
func (d *Data) Unref() {
	if d == nil {
		return
	}
	d.unrefOnce.Do(func() {
		if d.unref != nil {
			d.unref(d)
		}
		d.Buf = nil
	})
}

func (d *Data) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Buf)
}
