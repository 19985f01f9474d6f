package system

import "testing"

func TestPathExists(t *testing.T) {
	dir := t.TempDir()

	ok, err := PathExists(dir)
	if err != nil {
		t.Fatalf("PathExists: %v", err)
	}
	if !ok {
		t.Fatal("expected an existing directory to report true")
	}

	ok, err = PathExists(dir + "/does-not-exist")
	if err != nil {
		t.Fatalf("PathExists: %v", err)
	}
	if ok {
		t.Fatal("expected a missing path to report false")
	}
}

func TestShortString(t *testing.T) {
	if got := ShortString("short", 10); got != "short" {
		t.Fatalf("ShortString did not pass through a string under the limit: %q", got)
	}

	got := ShortString("this is a long string", 7)
	if got != "this is..." {
		t.Fatalf("ShortString = %q, want %q", got, "this is...")
	}
}
