package klock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tifflin.dev/kernel/pkg/sched"
)

func TestSequentialQueueFirstTicketProceedsImmediately(t *testing.T) {
	var q SequentialQueue
	self := sched.New("t0")

	tk := q.WaitOn(self)
	require.Equal(t, Ticket(0), tk)
}

func TestSequentialQueueOrdersWaiters(t *testing.T) {
	var q SequentialQueue
	self := sched.New("main")

	tk0 := q.WaitOn(self)
	require.Equal(t, Ticket(0), tk0)

	var order []int
	done := make(chan struct{}, 2)

	sched.Spawn("w1", func(t *sched.Thread) {
		q.WaitOn(t)
		order = append(order, 1)
		q.WakeNext(t)
		done <- struct{}{}
	})
	time.Sleep(5 * time.Millisecond)
	sched.Spawn("w2", func(t *sched.Thread) {
		q.WaitOn(t)
		order = append(order, 2)
		q.WakeNext(t)
		done <- struct{}{}
	})
	time.Sleep(5 * time.Millisecond)

	q.WakeNext(self)
	<-done
	<-done

	require.Equal(t, []int{1, 2}, order)
}
