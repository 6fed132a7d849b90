package cli

import (
	"testing"

	"go.uber.org/goleak"
)

// TestPackageLeaks runs goleak verification for the entire package
func TestPackageLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Run a folder validation with a worker pool; every worker must have exited
	fsys := newTestFs(t)
	_, _, err := execute(t, fsys, nil, "validate", "-c", "/work/rules.yml", "-i", "/work/data", "-o", "/work/out",
		"--format", "json", "--concurrency", "3")
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}
