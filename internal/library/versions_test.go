package library

import "testing"

func TestVersionKeyIgnoresOrderAndDuplicates(t *testing.T) {
	a := versionKey([]string{"3", "1", "2"})
	b := versionKey([]string{"1", "2", "3", "2"})
	if a != b {
		t.Fatalf("keys differ: %q vs %q", a, b)
	}
	if a == versionKey([]string{"1", "2"}) {
		t.Fatal("different sets must not share a key")
	}
	// "1","23" and "12","3" must not collide through concatenation.
	if versionKey([]string{"1", "23"}) == versionKey([]string{"12", "3"}) {
		t.Fatal("separator missing between ids")
	}
	if standaloneKey("1") != versionKey([]string{"1"}) {
		t.Fatal("standalone key mismatch")
	}
}
