package common

import (
	"fmt"
	"testing"
)

func TestRollingIndex(t *testing.T) {
	size := 10
	testSize := 3 * size
	rollingIndex := NewRollingIndex[string]("test", size)
	items := []string{}
	for i := 0; i < testSize; i++ {
		item := fmt.Sprintf("item%d", i)
		rollingIndex.Set(item, i)
		items = append(items, item)
	}
	cached, lastIndex := rollingIndex.GetLastWindow()

	expectedLastIndex := testSize - 1
	if lastIndex != expectedLastIndex {
		t.Fatalf("lastIndex should be %d, not %d", expectedLastIndex, lastIndex)
	}

	start := (testSize / (2 * size)) * (size)
	count := testSize - start

	for i := 0; i < count; i++ {
		if cached[i] != items[start+i] {
			t.Fatalf("cached[%d] should be %s, not %s", i, items[start+i], cached[i])
		}
	}

	err := rollingIndex.Set("ErrSkippedIndex", expectedLastIndex+2)
	if err == nil || !IsStore(err, SkippedIndex) {
		t.Fatalf("Should return ErrSkippedIndex")
	}

	_, err = rollingIndex.GetItem(9)
	if err == nil || !IsStore(err, TooLate) {
		t.Fatalf("Should return ErrTooLate")
	}

	indexes := []int{10, 17, 29}
	for _, i := range indexes {
		item, err := rollingIndex.GetItem(i)
		if err != nil {
			t.Fatalf("GetItem(%d) err: %v", i, err)
		}
		if item != items[i] {
			t.Fatalf("GetItem(%d) should be %s, not %s", i, items[i], item)
		}
	}

	_, err = rollingIndex.GetItem(lastIndex + 1)
	if err == nil || !IsStore(err, KeyNotFound) {
		t.Fatalf("Should return KeyNotFound")
	}

	//Test updating an item in place
	updateIndex := 26
	updateValue := "Updated Item"

	err = rollingIndex.Set(updateValue, updateIndex)
	if err != nil {
		t.Fatalf("SetItem(%d) err: %v", updateIndex, err)
	}
	item, err := rollingIndex.GetItem(updateIndex)
	if err != nil {
		t.Fatalf("GetItem(%d) err: %v", updateIndex, err)
	}
	if item != updateValue {
		t.Fatalf("Updated item %d should be %s, not %s", updateIndex, updateValue, item)
	}

	since, err := rollingIndex.Get(26)
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 3 || since[0] != "item27" {
		t.Fatalf("Get(26) should return items 27..29, not %v", since)
	}

	if _, err := rollingIndex.Get(0); !IsStore(err, TooLate) {
		t.Fatalf("Get(0) should return TooLate, not %v", err)
	}
}

func TestRollingIndexMap(t *testing.T) {
	rim := NewRollingIndexMap[int]("test", 5)

	if _, err := rim.Get(1, -1); !IsStore(err, KeyNotFound) {
		t.Fatalf("Get on an unknown key should return KeyNotFound, not %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := rim.Set(2, i*10, i); err != nil {
			t.Fatal(err)
		}
	}

	item, err := rim.GetItem(2, 2)
	if err != nil || item != 20 {
		t.Fatalf("GetItem(2, 2) should be 20, not %d (%v)", item, err)
	}

	items, err := rim.Get(2, 0)
	if err != nil || len(items) != 2 || items[0] != 10 {
		t.Fatalf("Get(2, 0) should be [10 20], not %v (%v)", items, err)
	}

	if _, err := rim.GetItem(3, 0); !IsStore(err, KeyNotFound) {
		t.Fatalf("GetItem on an unknown key should return KeyNotFound, not %v", err)
	}

	known := rim.Known()
	if len(known) != 1 || known[2] != 2 {
		t.Fatalf("Known() is wrong: %v", known)
	}
}
