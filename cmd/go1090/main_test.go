package main

import (
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestVersionFlag exercises the built binary's --version path end to
// end, the one RunE branch that doesn't require a sample source or any
// bound ports.
func TestVersionFlag(t *testing.T) {
	if os.Getenv("GO1090_TEST_BINARY") == "" {
		t.Skip("requires a built go1090 binary; set GO1090_TEST_BINARY to its path to run")
	}

	cmd := exec.Command(os.Getenv("GO1090_TEST_BINARY"), "--version")
	out, err := cmd.CombinedOutput()
	assert.NoError(t, err)
	assert.Contains(t, string(out), "Go1090")
}
