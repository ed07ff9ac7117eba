package vidtab

import "testing"

// P4: a VID learned via ingress port name-ethK carries the ".K" suffix
// relative to what the neighbor sent.
func TestVIDExtensionSuffix(t *testing.T) {
	base := VID("3.1")
	got := base.Extend(4)
	want := VID("3.1.4")
	if got != want {
		t.Fatalf("Extend(4) = %v, want %v", got, want)
	}
}

func TestRootIntRoundTrip(t *testing.T) {
	v := FromRootInt(42)
	n, ok := v.RootInt()
	if !ok || n != 42 {
		t.Fatalf("RootInt() = %v, %v want 42, true", n, ok)
	}

	extended := v.Extend(2)
	if _, ok := extended.RootInt(); ok {
		t.Fatalf("RootInt() should fail on an extended VID %v", extended)
	}
}

// P5: a port that has ever started resolves to exactly one of the
// accepted or offered sides, never both.
func TestHandshakeCompletionExclusive(t *testing.T) {
	r := NewRegistry()
	h := r.AddControlPort("leaf1-eth1", 1, nil)

	if err := r.MarkAccepted(h); err != nil {
		t.Fatalf("MarkAccepted: %v", err)
	}
	if err := r.MarkOffered(h); err == nil {
		t.Fatalf("expected MarkOffered to reject an already-accepted port")
	}
	if !r.IsAccepted(h) || r.IsOffered(h) {
		t.Fatalf("port should resolve to accepted only, got accepted=%v offered=%v", r.IsAccepted(h), r.IsOffered(h))
	}

	h2 := r.AddControlPort("leaf1-eth2", 2, nil)
	if err := r.MarkOffered(h2); err != nil {
		t.Fatalf("MarkOffered: %v", err)
	}
	if err := r.MarkAccepted(h2); err == nil {
		t.Fatalf("expected MarkAccepted to reject an already-offered port")
	}
	if !r.IsOffered(h2) || r.IsAccepted(h2) {
		t.Fatalf("port should resolve to offered only, got accepted=%v offered=%v", r.IsAccepted(h2), r.IsOffered(h2))
	}
}

// The offered table's reachable and unreachable sub-tables are
// independent: removing a VID from one leaves the other untouched. P2
// itself is kept by flood.go's HandleFailureUpdate, which clears the
// reachable sub-table before inserting.
func TestOfferedTableRemoveReachableLeavesUnreachable(t *testing.T) {
	r := NewRegistry()
	h := r.AddControlPort("spine1-eth1", 1, nil)
	if err := r.MarkOffered(h); err != nil {
		t.Fatal(err)
	}

	r.Offered.AddReachable(h, []VID{"7"})
	r.Offered.AddUnreachable(h, []VID{"7"})
	// AddReachable/AddUnreachable don't clear each other by themselves;
	// the exclusivity invariant is maintained by HandleFailureUpdate's
	// ClearReachable-before-AddUnreachable sequencing. Directly verify
	// the lower-level escape hatch this depends on: removing from one
	// table never touches the other.
	r.Offered.RemoveReachable(h, []VID{"7"})
	if r.Offered.HasUnreachable(h, "7") == false {
		t.Fatalf("RemoveReachable should not affect the unreachable sub-table")
	}
}

// P1: continue_count stays within [0,3], and reaching 3 always implies
// the port is up with no fail type.
func TestPortUpBoundsContinueCount(t *testing.T) {
	r := NewRegistry()
	h := r.AddControlPort("leaf1-eth1", 1, nil)
	p := r.Port(h)

	p.IsUP = false
	p.FailType = FailMiss
	p.ContinueCt = 0

	for i := 0; i < 5; i++ {
		p.ContinueCt++
		if p.ContinueCt >= 3 {
			p.ContinueCt = 3
			p.IsUP = true
			p.FailType = FailNone
		}
	}

	if p.ContinueCt < 0 || p.ContinueCt > 3 {
		t.Fatalf("continue_count out of range: %v", p.ContinueCt)
	}
	if p.ContinueCt == 3 && (!p.IsUP || p.FailType != FailNone) {
		t.Fatalf("continue_count==3 must imply isUP and fail_type==none")
	}
}
