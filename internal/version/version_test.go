package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldTime })

	Version, GitSHA, BuildTime = "0.3.1", "a1b2c3d", "2026-02-14T09:30:00Z"
	want := "locomotion 0.3.1 (commit a1b2c3d, built 2026-02-14T09:30:00Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
