package buildinfo

import "testing"

func TestInfoString(t *testing.T) {
	if got := (Info{Version: "v1", Commit: "abc"}).String(); got != "v1 (abc)" {
		t.Fatalf("String = %q", got)
	}
	if got := (Info{Version: "v1", Commit: "abc", Date: "2025-01-01T00:00:00Z"}).String(); got != "v1 (abc, 2025-01-01T00:00:00Z)" {
		t.Fatalf("String = %q", got)
	}
}
