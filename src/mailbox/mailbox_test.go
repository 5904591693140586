package mailbox

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/trustflood/src/event"
)

func TestEventMailboxFIFO(t *testing.T) {
	mb := NewEventMailbox()

	if _, ok := mb.TryTake(); ok {
		t.Fatal("TryTake on an empty mailbox should return false")
	}

	if mb.HasPending() {
		t.Fatal("empty mailbox should not have pending events")
	}

	for i := 0; i < 10; i++ {
		mb.Add(event.NewEvent(i, fmt.Sprintf("event_%d", i)))
	}

	if l := mb.Len(); l != 10 {
		t.Fatalf("Len() should be 10, not %d", l)
	}

	for i := 0; i < 10; i++ {
		ev, ok := mb.TryTake()
		if !ok {
			t.Fatalf("TryTake #%d should succeed", i)
		}
		if ev.ID != i {
			t.Fatalf("TryTake #%d should return event %d, not %d", i, i, ev.ID)
		}
	}

	if mb.HasPending() {
		t.Fatal("drained mailbox should not have pending events")
	}
}

func TestEventMailboxConcurrentProducers(t *testing.T) {
	mb := NewEventMailbox()

	producers := 8
	perProducer := 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				mb.Add(event.NewEvent(p*perProducer+i, fmt.Sprint(p)))
			}
		}(p)
	}
	wg.Wait()

	// per-producer order must be preserved
	last := make(map[string]int)
	count := 0
	for {
		ev, ok := mb.TryTake()
		if !ok {
			break
		}
		if prev, seen := last[ev.Payload]; seen && prev >= ev.ID {
			t.Fatalf("producer %s: event %d dequeued after %d", ev.Payload, ev.ID, prev)
		}
		last[ev.Payload] = ev.ID
		count++
	}

	if count != producers*perProducer {
		t.Fatalf("should dequeue %d events, not %d", producers*perProducer, count)
	}
}

func TestEventMailboxReady(t *testing.T) {
	mb := NewEventMailbox()

	go func() {
		time.Sleep(10 * time.Millisecond)
		mb.Add(event.NewEvent(0, "event_0"))
	}()

	select {
	case <-mb.Ready():
	case <-time.After(time.Second):
		t.Fatal("Ready should fire after Add")
	}

	if _, ok := mb.TryTake(); !ok {
		t.Fatal("event should be available after Ready fired")
	}
}

func TestReportMailboxTakeMatching(t *testing.T) {
	mb := NewReportMailbox()

	mb.Add(1, event.NewEvent(0, "event_0"))
	mb.Add(2, event.NewEvent(1, "event_1"))
	mb.Add(2, event.NewEvent(0, "event_0"))
	mb.Add(3, event.NewEvent(0, "corrupt"))

	reports := mb.TakeMatching(0)
	if len(reports) != 3 {
		t.Fatalf("TakeMatching(0) should return 3 reports, not %d", len(reports))
	}

	expectedOrigins := []uint32{1, 2, 3}
	for i, r := range reports {
		if r.ID != 0 {
			t.Fatalf("report %d should be for event 0, not %d", i, r.ID)
		}
		if r.Origin != expectedOrigins[i] {
			t.Fatalf("report %d should come from %d, not %d", i, expectedOrigins[i], r.Origin)
		}
	}

	if p := mb.Pending(); p != 0 {
		t.Fatalf("ingress should be drained, %d pending", p)
	}

	if b := mb.Buffered(); b != 4 {
		t.Fatalf("buffer should hold 4 reports, not %d", b)
	}

	// Taking again without discarding returns the same reports
	if again := mb.TakeMatching(0); len(again) != 3 {
		t.Fatalf("second TakeMatching(0) should return 3 reports, not %d", len(again))
	}
}

func TestReportMailboxDiscardMatching(t *testing.T) {
	mb := NewReportMailbox()

	mb.Add(1, event.NewEvent(0, "event_0"))
	mb.Add(1, event.NewEvent(1, "event_1"))
	mb.TakeMatching(0)

	// arrives after the drain, stays in ingress
	mb.Add(2, event.NewEvent(0, "event_0"))

	mb.DiscardMatching(0)

	if b := mb.Buffered(); b != 1 {
		t.Fatalf("buffer should hold 1 report after discard, not %d", b)
	}

	if p := mb.Pending(); p != 1 {
		t.Fatalf("discard should not touch ingress, %d pending", p)
	}

	others := mb.TakeMatching(1)
	if len(others) != 1 || others[0].Origin != 1 {
		t.Fatalf("report for event 1 should survive discard of event 0: %v", others)
	}

	late := mb.TakeMatching(0)
	if len(late) != 1 || late[0].Origin != 2 {
		t.Fatalf("late report for event 0 should be matched by a later take: %v", late)
	}
}

func TestReportMailboxIsolation(t *testing.T) {
	mb := NewReportMailbox()

	for id := 0; id < 5; id++ {
		for origin := uint32(0); origin < 3; origin++ {
			mb.Add(origin, event.NewEvent(id, fmt.Sprintf("event_%d", id)))
		}
	}

	for id := 0; id < 5; id++ {
		for _, r := range mb.TakeMatching(id) {
			if r.ID != id {
				t.Fatalf("TakeMatching(%d) returned a report for %d", id, r.ID)
			}
		}
	}

	mb.DiscardMatching(2)

	for id := 0; id < 5; id++ {
		l := len(mb.TakeMatching(id))
		if id == 2 && l != 0 {
			t.Fatalf("reports for event 2 should be gone, %d left", l)
		}
		if id != 2 && l != 3 {
			t.Fatalf("event %d should still have 3 reports, not %d", id, l)
		}
	}
}

func TestReportMailboxConcurrentProducers(t *testing.T) {
	mb := NewReportMailbox()

	var wg sync.WaitGroup
	for p := uint32(0); p < 10; p++ {
		wg.Add(1)
		go func(p uint32) {
			defer wg.Done()
			for id := 0; id < 50; id++ {
				mb.Add(p, event.NewEvent(id, "x"))
			}
		}(p)
	}

	// concurrent consumer taking while producers write
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			mb.TakeMatching(i % 50)
		}
	}()

	wg.Wait()
	<-done

	total := 0
	for id := 0; id < 50; id++ {
		total += len(mb.TakeMatching(id))
	}

	if total != 500 {
		t.Fatalf("should have 500 reports, not %d", total)
	}
}
