package inbox

import (
	"context"
	"testing"
	"time"
)

func TestSettleQueueDropsFiredTimerAfterNewWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := newSettleQueue(5 * time.Millisecond)
	defer q.stop()

	q.touch(ctx, "/inbox/a.pdf")
	var first settledPath
	select {
	case first = <-q.out:
	case <-time.After(time.Second):
		t.Fatal("first timer never fired")
	}

	// A write lands after the timer fired but before the watcher consumed it.
	q.touch(ctx, "/inbox/a.pdf")
	if q.take(first) {
		t.Fatal("stale generation was taken")
	}

	var second settledPath
	select {
	case second = <-q.out:
	case <-time.After(time.Second):
		t.Fatal("second timer never fired")
	}
	if !q.take(second) {
		t.Fatal("latest generation was not taken")
	}

	select {
	case extra := <-q.out:
		t.Fatalf("unexpected extra delivery %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	if q.take(second) {
		t.Fatal("path was taken twice")
	}
}

func TestSettleQueueCoalescesBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := newSettleQueue(30 * time.Millisecond)
	defer q.stop()

	for i := 0; i < 5; i++ {
		q.touch(ctx, "/inbox/b.pdf")
	}

	taken := 0
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case s := <-q.out:
			if q.take(s) {
				taken++
			}
			continue
		case <-deadline:
		}
		break
	}
	if taken != 1 {
		t.Fatalf("deliveries = %d, want 1", taken)
	}
}
