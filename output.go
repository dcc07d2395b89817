package patternd

import (
	"dev.acmcsuf.com/christmas/lib/leddraw"
)

// Output is where rendered frames go, usually a physical LED strip.
type Output interface {
	// SetLEDs pushes the strip to the output. The strip is only valid for
	// the duration of the call; implementations must copy what they keep.
	SetLEDs(strip leddraw.LEDStrip) error
}

// OutputFunc adapts a function to an Output.
type OutputFunc func(strip leddraw.LEDStrip) error

// SetLEDs implements Output.
func (f OutputFunc) SetLEDs(strip leddraw.LEDStrip) error { return f(strip) }

type discardOutput struct{}

func (discardOutput) SetLEDs(leddraw.LEDStrip) error { return nil }
