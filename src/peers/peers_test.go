package peers

import (
	"reflect"
	"sync"
	"testing"
)

func TestScoreOrdering(t *testing.T) {
	if !(Positive > Default && Default > Negative) {
		t.Fatalf("scores should be ordered Positive > Default > Negative, got %v %v %v",
			Positive, Default, Negative)
	}

	if Verdict(true) != Positive {
		t.Fatal("agreement should be Positive")
	}

	if Verdict(false) != Negative {
		t.Fatal("disagreement should be Negative")
	}

	if s := Default.String(); s != "default" {
		t.Fatalf("Default.String() should be 'default', not '%s'", s)
	}
}

func TestPeerSet(t *testing.T) {
	ps := NewPeerSet([]uint32{3, 1, 2, 1})

	if l := ps.Len(); l != 3 {
		t.Fatalf("duplicates should be ignored, Len() is %d", l)
	}

	if ids := ps.IDs(); !reflect.DeepEqual(ids, []uint32{3, 1, 2}) {
		t.Fatalf("IDs() should preserve insertion order, got %v", ids)
	}

	if ids := ps.SortedIDs(); !reflect.DeepEqual(ids, []uint32{1, 2, 3}) {
		t.Fatalf("SortedIDs() should be [1 2 3], got %v", ids)
	}

	if !ps.Contains(2) || ps.Contains(4) {
		t.Fatal("Contains is wrong")
	}

	withNew := ps.WithNewPeer(4)
	if withNew.Len() != 4 || ps.Len() != 3 {
		t.Fatal("WithNewPeer should return a new set and leave the original alone")
	}

	index, others := ExcludePeer(ps.IDs(), 1)
	if index != 1 || !reflect.DeepEqual(others, []uint32{3, 2}) {
		t.Fatalf("ExcludePeer returned %d %v", index, others)
	}
}

func TestScoreTable(t *testing.T) {
	table := NewScoreTable(NewPeerSet([]uint32{1, 2}))

	snapshot := table.Snapshot()
	if !reflect.DeepEqual(snapshot, map[uint32]Score{1: Default, 2: Default}) {
		t.Fatalf("new table should be all Default, got %v", snapshot)
	}

	if !table.Set(1, Positive) {
		t.Fatal("Set on a known peer should succeed")
	}

	if table.Set(9, Positive) {
		t.Fatal("Set on an unknown peer should fail")
	}

	if _, ok := table.Get(9); ok {
		t.Fatal("unknown peer should not be added to the table")
	}

	// the snapshot taken earlier must not see the update
	if snapshot[1] != Default {
		t.Fatal("snapshot should be a copy")
	}

	if s, _ := table.Get(1); s != Positive {
		t.Fatalf("peer 1 should be Positive, not %v", s)
	}

	table.Reset()

	if s, _ := table.Get(1); s != Default {
		t.Fatalf("Reset should set peer 1 back to Default, not %v", s)
	}
}

func TestScoreTableConcurrentSnapshot(t *testing.T) {
	table := NewScoreTable(NewPeerSet([]uint32{1, 2, 3}))

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			table.Reset()
			table.Set(uint32(i%3+1), Verdict(i%2 == 0))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if l := len(table.Snapshot()); l != 3 {
				t.Errorf("snapshot should always have 3 entries, not %d", l)
				return
			}
		}
	}()

	wg.Wait()
}
