package seq_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lanenet/pkg/seq"
)

func TestDistSymmetric(t *testing.T) {
	cases := []struct{ a, b seq.Num }{
		{0, 1}, {10, 5}, {0, 32767}, {100, 65500}, {65535, 0},
	}
	for _, c := range cases {
		assert.Equal(t, seq.Dist(c.a, c.b), -seq.Dist(c.b, c.a), "a=%d b=%d", c.a, c.b)
	}
}

func TestNewerWraparound(t *testing.T) {
	assert.True(t, seq.Newer(65535, 0), "0 should be newer than 65535 after wrap")
	assert.False(t, seq.Newer(0, 65535))
	assert.True(t, seq.Newer(10, 11))
	assert.False(t, seq.Newer(11, 10))
}

func TestNewerOrEqual(t *testing.T) {
	assert.True(t, seq.NewerOrEqual(5, 5))
	assert.True(t, seq.NewerOrEqual(5, 6))
	assert.False(t, seq.NewerOrEqual(6, 5))
}

func TestCounterMonotonic(t *testing.T) {
	var c seq.Counter
	assert.EqualValues(t, 0, c.Next())
	assert.EqualValues(t, 1, c.Next())
	assert.EqualValues(t, 2, c.Peek())
}

func TestCounterWraps(t *testing.T) {
	c := seq.Counter{}
	for i := 0; i < 65536; i++ {
		c.Next()
	}
	assert.EqualValues(t, 0, c.Peek())
}

func TestAdd(t *testing.T) {
	assert.EqualValues(t, 5, seq.Add(3, 2))
	assert.EqualValues(t, 65535, seq.Add(0, -1))
}
