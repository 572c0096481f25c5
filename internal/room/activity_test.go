package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActivitySetPinsLocal(t *testing.T) {
	a := newActivitySet("me")
	a.Add("x")
	a.Add("y")
	a.Remove("me")
	assert.Equal(t, []string{"me", "x", "y"}, a.Order())
}

func TestActivitySetAddIsIdempotent(t *testing.T) {
	a := newActivitySet("me")
	a.Add("x")
	a.Add("x")
	assert.Equal(t, []string{"me", "x"}, a.Order())
}

func TestActivitySetPromote(t *testing.T) {
	a := newActivitySet("me")
	a.Add("x")
	a.Add("y")
	a.Add("z")

	a.Promote("z")
	assert.Equal(t, []string{"me", "z", "x", "y"}, a.Order())

	// Promoting an unknown id inserts it.
	a.Promote("w")
	assert.Equal(t, []string{"me", "w", "z", "x", "y"}, a.Order())

	// Promoting the local id does nothing.
	a.Promote("me")
	assert.Equal(t, "me", a.Order()[0])
}

func TestActivitySetPromoteIntoEmpty(t *testing.T) {
	a := newActivitySet("me")
	a.Promote("x")
	assert.Equal(t, []string{"me", "x"}, a.Order())
}
