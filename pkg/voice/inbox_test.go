package voice

import "testing"

func TestAddAndDrain(t *testing.T) {
	in := NewInbox(0)

	a := in.Add("hello nox")
	b := in.Add("where is my cup")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("bad ids: %q %q", a.ID, b.ID)
	}
	if in.Pending() != 2 {
		t.Fatalf("pending: got %d", in.Pending())
	}

	got := in.Drain()
	if len(got) != 2 || got[0].Text != "hello nox" {
		t.Fatalf("drain: %+v", got)
	}
	if in.Pending() != 0 {
		t.Error("drain did not mark delivered")
	}
	if again := in.Drain(); len(again) != 0 {
		t.Errorf("second drain returned %d messages", len(again))
	}
}

func TestAddIgnoresEmpty(t *testing.T) {
	in := NewInbox(0)
	if msg := in.Add(""); msg.ID != "" {
		t.Error("empty text produced a message")
	}
	if in.Pending() != 0 {
		t.Error("empty text was queued")
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	in := NewInbox(2)
	in.Add("one")
	in.Add("two")
	in.Add("three")

	got := in.Drain()
	if len(got) != 2 {
		t.Fatalf("drained %d, want 2", len(got))
	}
	if got[0].Text != "two" || got[1].Text != "three" {
		t.Errorf("wrong survivors: %q %q", got[0].Text, got[1].Text)
	}
	if in.Dropped() != 1 {
		t.Errorf("dropped: got %d", in.Dropped())
	}
}

func TestRecentIncludesDelivered(t *testing.T) {
	in := NewInbox(0)
	in.Add("one")
	in.Drain()
	in.Add("two")

	got := in.Recent(10)
	if len(got) != 2 {
		t.Fatalf("recent: got %d", len(got))
	}
	if !got[0].Delivered || got[1].Delivered {
		t.Errorf("delivery flags wrong: %+v", got)
	}

	if got := in.Recent(1); len(got) != 1 || got[0].Text != "two" {
		t.Errorf("limited recent: %+v", got)
	}
}

func TestDroppedIgnoresDeliveredEvictions(t *testing.T) {
	in := NewInbox(2)
	in.Add("one")
	in.Add("two")
	in.Drain()

	// Evicts "one", which the brain already collected.
	in.Add("three")
	if in.Dropped() != 0 {
		t.Errorf("dropped after delivered eviction: got %d, want 0", in.Dropped())
	}

	// Evicts "two" (delivered), then "three" (not).
	in.Add("four")
	in.Add("five")
	if in.Dropped() != 1 {
		t.Errorf("dropped after mixed evictions: got %d, want 1", in.Dropped())
	}
}
