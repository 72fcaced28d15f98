package version

import "testing"

func TestGetNeverEmpty(t *testing.T) {
	if Get() == "" {
		t.Fatal("Get returned an empty version")
	}
}
