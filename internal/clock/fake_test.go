package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockFiresInDeadlineOrder(t *testing.T) {
	c := Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var order []string
	c.AfterFunc(3*time.Minute, func() { order = append(order, "late") })
	c.AfterFunc(time.Minute, func() { order = append(order, "early") })

	c.Advance(30 * time.Second)
	assert.Empty(t, order)
	assert.Equal(t, 2, c.Pending())

	c.Advance(5 * time.Minute)
	assert.Equal(t, []string{"early", "late"}, order)
	assert.Zero(t, c.Pending())
}

func TestFakeClockStop(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	c.Advance(time.Hour)
	assert.False(t, fired)
}

func TestFakeClockNonPositiveDelayRunsImmediately(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	fired := false
	timer := c.AfterFunc(0, func() { fired = true })
	assert.True(t, fired)
	assert.False(t, timer.Stop())
}
