package internal

import (
	"github.com/davecgh/go-spew/spew"
)

// Dumper renders Value with spew only when it is formatted, so passing it
// to a disabled log level costs nothing.
type Dumper struct {
	Value any
}

func Dump(v any) Dumper {
	return Dumper{Value: v}
}

func (d Dumper) String() string {
	return spew.Sdump(d.Value)
}
