package frame

// ClearColor is the per-tick payload: three 8-bit accumulators advanced by
// fixed deltas every tick, wrapping modulo 256.
type ClearColor struct {
	R, G, B    uint8
	DR, DG, DB uint8
}

// NewClearColor starts the accumulators at start and steps them by delta.
func NewClearColor(start, delta [3]uint8) ClearColor {
	return ClearColor{
		R: start[0], G: start[1], B: start[2],
		DR: delta[0], DG: delta[1], DB: delta[2],
	}
}

// Advance steps every channel once.
func (c *ClearColor) Advance() {
	c.R += c.DR
	c.G += c.DG
	c.B += c.DB
}

// SetDeltas changes the step without touching the accumulators.
func (c *ClearColor) SetDeltas(delta [3]uint8) {
	c.DR, c.DG, c.DB = delta[0], delta[1], delta[2]
}

// Channels returns the accumulator values.
func (c ClearColor) Channels() [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// Value converts the accumulators to an opaque clear value.
func (c ClearColor) Value() ClearValue {
	return ClearValue{
		float32(c.R) / 256,
		float32(c.G) / 256,
		float32(c.B) / 256,
		1,
	}
}
