package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestService_Fires(t *testing.T) {
	s := NewService()
	fired := make(chan struct{})

	s.Start(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestService_CancelPreventsFire(t *testing.T) {
	s := NewService()
	var fired atomic.Bool

	h := s.Start(20*time.Millisecond, func() { fired.Store(true) })
	require.True(t, s.Cancel(h), "cancel of pending timer should report true")
	assert.False(t, s.Cancel(h), "second cancel should report false")

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load(), "cancelled timer fired")
	assert.Equal(t, 0, s.Pending())
}

func TestService_CancelAfterFire(t *testing.T) {
	s := NewService()
	fired := make(chan struct{})

	h := s.Start(time.Millisecond, func() { close(fired) })
	<-fired

	assert.Eventually(t, func() bool { return !s.Cancel(h) }, time.Second, time.Millisecond)
}

func TestFake_AdvanceFiresDueTimersInOrder(t *testing.T) {
	f := NewFake(epoch)
	var order []string

	f.Start(3*time.Second, func() { order = append(order, "c") })
	f.Start(1*time.Second, func() { order = append(order, "a") })
	f.Start(2*time.Second, func() { order = append(order, "b") })
	f.Start(10*time.Second, func() { order = append(order, "late") })

	f.Advance(3 * time.Second)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, epoch.Add(3*time.Second), f.Now())
	assert.Equal(t, 1, f.Pending())
}

func TestFake_NowDuringCallbackIsDeadline(t *testing.T) {
	f := NewFake(epoch)
	var seen time.Time

	f.Start(2*time.Second, func() { seen = f.Now() })
	f.Advance(5 * time.Second)

	assert.Equal(t, epoch.Add(2*time.Second), seen)
	assert.Equal(t, epoch.Add(5*time.Second), f.Now())
}

func TestFake_NotDueYet(t *testing.T) {
	f := NewFake(epoch)
	fired := false

	f.Start(10*time.Second, func() { fired = true })
	f.Advance(10*time.Second - time.Millisecond)
	assert.False(t, fired)

	f.Advance(time.Millisecond)
	assert.True(t, fired, "timer should fire exactly at its deadline")
}

func TestFake_Cancel(t *testing.T) {
	f := NewFake(epoch)
	fired := false

	h := f.Start(time.Second, func() { fired = true })
	require.True(t, f.Cancel(h))
	assert.False(t, f.Cancel(h))

	f.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFake_CallbackStartsTimer(t *testing.T) {
	f := NewFake(epoch)
	ticks := 0

	var tick func()
	tick = func() {
		ticks++
		if ticks < 5 {
			f.Start(time.Second, tick)
		}
	}
	f.Start(time.Second, tick)

	f.Advance(3 * time.Second)
	assert.Equal(t, 3, ticks)

	f.Advance(time.Minute)
	assert.Equal(t, 5, ticks)
	assert.Equal(t, 0, f.Pending())
}

func TestSchedulerImplementations(t *testing.T) {
	var _ Scheduler = (*Service)(nil)
	var _ Scheduler = (*Fake)(nil)
}
