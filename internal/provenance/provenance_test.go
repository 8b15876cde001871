package provenance

import "testing"

func TestHashDeterministic(t *testing.T) {
	a := Hash(1, 4, "a.txt", 100, "[1, 2]", "")
	b := Hash(1, 4, "a.txt", 100, "[1, 2]", "")
	if a != b {
		t.Fatalf("hash not deterministic: %s != %s", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16 hex chars, got %d", len(a))
	}
}

func TestHashChangesWithInput(t *testing.T) {
	a := Hash(1, 4, "a.txt", 100, "[1, 2]", "")
	b := Hash(2, 4, "a.txt", 100, "[1, 2]", "")
	if a == b {
		t.Fatal("expected different hash for different chunk_index")
	}
}

func TestRepairWithinDistance(t *testing.T) {
	known := []string{"aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb"}
	corrupted := "aaaaaaaaaaaaaaab" // 1 char flipped vs known[0]
	got, ok := Repair(corrupted, known, 2)
	if !ok || got != known[0] {
		t.Fatalf("expected repair to %s, got %s ok=%v", known[0], got, ok)
	}
}

func TestRepairTieIsRefused(t *testing.T) {
	known := []string{"aaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaab"}
	corrupted := "aaaaaaaaaaaaaaac" // distance 1 from both
	_, ok := Repair(corrupted, known, 2)
	if ok {
		t.Fatal("expected tie to refuse repair")
	}
}

func TestRepairOutOfRadius(t *testing.T) {
	known := []string{"aaaaaaaaaaaaaaaa"}
	corrupted := "bbbbbbbbbbbbbbbb"
	_, ok := Repair(corrupted, known, 2)
	if ok {
		t.Fatal("expected out-of-radius corruption to be discarded")
	}
}
