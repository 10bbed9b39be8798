// Package seq implements the wrapping 16-bit sequence counter shared by
// packet and message numbering, plus the signed-distance comparison that
// every "is X newer than Y" decision in the session engine is built on.
package seq

// Num is a 16-bit wrapping sequence number. Comparing two Num values
// directly is meaningless once either has wrapped; use Dist or Newer
// instead.
type Num uint16

// Dist returns the signed distance from a to b: how many steps forward
// from a you must take to reach b. A positive result means b is newer
// than a; a negative result means b is older. The result is only
// meaningful when the true distance between a and b is within
// [-32768, 32767] — the caller is responsible for keeping sequences close
// enough together that this holds.
func Dist(a, b Num) int16 {
	return int16(b - a)
}

// Newer reports whether b is strictly newer than a, i.e. Dist(a, b) > 0.
func Newer(a, b Num) bool {
	return Dist(a, b) > 0
}

// NewerOrEqual reports whether b is newer than or equal to a.
func NewerOrEqual(a, b Num) bool {
	return a == b || Newer(a, b)
}

// Add returns a advanced by delta steps (delta may be negative).
func Add(a Num, delta int16) Num {
	return Num(int32(a) + int32(delta))
}

// Counter allocates strictly monotonically increasing Num values for one
// send direction, wrapping at 2^16 per invariant 1 in the data model.
type Counter struct {
	next Num
}

// Next returns the next Num to allocate and advances the counter.
func (c *Counter) Next() Num {
	n := c.next
	c.next++
	return n
}

// Peek returns the Num that Next will return without advancing the
// counter.
func (c *Counter) Peek() Num {
	return c.next
}
