package version

import "testing"

func TestString(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()

	Version, Commit = "7.0.2", "abc1234"
	if got := String(); got != "7.0.2 (abc1234)" {
		t.Errorf("String() = %q, want %q", got, "7.0.2 (abc1234)")
	}
}
