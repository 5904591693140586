package consumer

import (
	"sync"
	"testing"
	"time"

	cm "github.com/mosaicnetworks/trustflood/src/common"
	"github.com/mosaicnetworks/trustflood/src/event"
	"github.com/mosaicnetworks/trustflood/src/node"
	"github.com/mosaicnetworks/trustflood/src/peers"
	"github.com/mosaicnetworks/trustflood/src/store"
)

func TestConsumerConnect(t *testing.T) {
	conf := node.TestConfig(t)
	st := store.NewInmemStore(10)

	nodes := []Source{
		node.NewNode(0, conf, st),
		node.NewNode(1, conf, st),
		node.NewNode(2, conf, st),
	}

	c := NewConsumer(0, conf, st)
	c.Connect(nodes)

	scores := c.PerfScores()
	if len(scores) != 3 {
		t.Fatalf("consumer should score 3 nodes, not %d", len(scores))
	}
	for id, s := range scores {
		if s != peers.Default {
			t.Fatalf("node %d should have the default score, not %v", id, s)
		}
	}

	// the snapshot belongs to the caller
	scores[0] = peers.Negative
	if c.PerfScores()[0] != peers.Default {
		t.Fatal("modifying the snapshot should not change the consumer")
	}
}

func TestConsumerReceive(t *testing.T) {
	conf := node.TestConfig(t)
	st := store.NewInmemStore(10)

	c := NewConsumer(0, conf, st)
	c.Connect([]Source{node.NewNode(4, conf, st)})

	c.Receive(event.NewPeerReport(4, event.NewEvent(1, "event_1")))
	c.Receive(event.NewPeerReport(5, event.NewEvent(1, "event_1")))

	if r := c.Received(); r != 2 {
		t.Fatalf("consumer should have received 2 notifications, not %d", r)
	}

	ns, err := st.GetNotifications(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(ns) != 2 || ns[0].Origin != 4 || ns[1].Origin != 5 {
		t.Fatalf("unexpected notifications %v", ns)
	}

	if c.PerfScores()[4] != peers.Default {
		t.Fatal("notifications should not change the performance scores")
	}

	st.Close()
	c.Receive(event.NewPeerReport(4, event.NewEvent(2, "event_2")))
	if _, err := st.GetNotifications(2); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("closed store should not record notifications, got %v", err)
	}
}

func TestConsumerNotifiedByNode(t *testing.T) {
	conf := node.TestConfig(t)
	conf.CollectTimeout = 0
	st := store.NewInmemStore(10)

	n := node.NewNode(0, conf, st)
	n.Connect(nil)

	c := NewConsumer(0, conf, st)
	c.Connect([]Source{n})
	c.Start()

	if err := n.Start(); err != nil {
		t.Fatal(err)
	}

	n.Receive(event.NewEvent(3, "event_3"))

	deadline := time.Now().Add(5 * time.Second)
	for c.Received() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting for notification")
		}
		time.Sleep(5 * time.Millisecond)
	}

	n.Terminate()
	n.Join()
	c.Terminate()
	c.Join()

	ns, err := st.GetNotifications(3)
	if err != nil {
		t.Fatal(err)
	}
	if ns[0].Origin != 0 || ns[0].Payload != "event_3" {
		t.Fatalf("unexpected notification %v", ns[0])
	}
}

func TestConsumerLifecycle(t *testing.T) {
	c := NewConsumer(0, node.TestConfig(t), nil)

	// never started
	c.Join()

	c.Start()
	c.Start()
	c.Terminate()
	c.Terminate()
	c.Join()

	c.Start()
	c.Join()
}

func TestConsumerConcurrentStart(t *testing.T) {
	c := NewConsumer(0, node.TestConfig(t), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Start()
		}()
	}
	wg.Wait()

	done := make(chan struct{})
	go func() {
		c.Terminate()
		c.Join()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer should stop after Terminate")
	}
}
