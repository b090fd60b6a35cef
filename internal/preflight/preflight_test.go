package preflight_test

import (
	"testing"

	"scribed/internal/preflight"
	"scribed/internal/testsupport"
)

func TestCheckEngineBinaryMissing(t *testing.T) {
	result := preflight.CheckEngineBinary("definitely-not-a-real-binary-xyz")
	if result.Passed {
		t.Fatal("expected missing binary to fail the check")
	}
	if result.Detail == "" {
		t.Fatal("expected a detail message")
	}
}

func TestCheckEngineBinaryStubbed(t *testing.T) {
	testsupport.NewConfig(t, testsupport.WithStubbedBinaries("whisper"))

	result := preflight.CheckEngineBinary("whisper")
	if !result.Passed {
		t.Fatalf("expected stubbed binary to pass, got %q", result.Detail)
	}
}

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckDirectoryAccess("Staging directory", dir); !result.Passed {
		t.Fatalf("expected writable temp dir to pass, got %q", result.Detail)
	}
	if result := preflight.CheckDirectoryAccess("Staging directory", dir+"/missing"); result.Passed {
		t.Fatal("expected missing directory to fail")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if result := preflight.CheckFreeSpace(dir, 0); !result.Passed {
		t.Fatalf("expected zero requirement to pass, got %q", result.Detail)
	}
	// No filesystem has an exbibyte free.
	if result := preflight.CheckFreeSpace(dir, 1<<30); result.Passed {
		t.Fatal("expected absurd requirement to fail")
	}
}

func TestRunAllReportsWithoutFailing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	cfg.Whisper.Binary = "definitely-not-a-real-binary-xyz"

	results := preflight.RunAll(cfg)
	if len(results) == 0 {
		t.Fatal("expected preflight results")
	}
	var engineChecked bool
	for _, result := range results {
		if result.Name == "Whisper binary" {
			engineChecked = true
			if result.Passed {
				t.Fatal("expected missing engine binary to be reported")
			}
		}
	}
	if !engineChecked {
		t.Fatal("engine binary check missing from RunAll")
	}
}
