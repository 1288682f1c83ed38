package tokenfarm

import (
	"strings"
	"testing"
)

func TestBuildInfo(t *testing.T) {
	info := BuildInfo()

	for _, part := range []string{Version, GitCommit, BuildTime} {
		if !strings.Contains(info, part) {
			t.Errorf("BuildInfo should contain %q, got: %s", part, info)
		}
	}

	// Should have expected format
	if !strings.Contains(info, "(") || !strings.Contains(info, ")") || !strings.Contains(info, "built") {
		t.Errorf("BuildInfo should have format 'VERSION (COMMIT) built TIME', got: %s", info)
	}
}

func TestBuildInfoDefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if GitCommit == "" {
		t.Error("GitCommit should not be empty")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty")
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != "tokenfarm/"+Version {
		t.Errorf("UserAgent() = %s", got)
	}
}
