package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	body := fmt.Sprintf(`[paths]
data_dir = %q
work_dir = %q
log_dir = %q

[providers]
api_key = "test-key"
`, filepath.Join(base, "data"), filepath.Join(base, "work"), filepath.Join(base, "logs"))
	if err := os.WriteFile(cfgPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestVersionCommandSkipsConfig(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "recap "+version)
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when target already exists")
	}
}

func TestConfigValidateReportsPath(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+cfgPath)
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowMasksAPIKey(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "********")
	if strings.Contains(out, "test-key") {
		t.Fatalf("api key leaked into config show output:\n%s", out)
	}
}

func TestSubmitAndInspectJob(t *testing.T) {
	cfgPath := writeTestConfig(t)

	source := filepath.Join(t.TempDir(), "standup.mp4")
	if err := os.WriteFile(source, []byte("not really a video"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	out, err := runCLI(t, "--config", cfgPath, "submit", source)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Submitted standup.mp4")

	var jobID string
	for _, line := range strings.Split(out, "\n") {
		if after, ok := strings.CutPrefix(line, "Job ID: "); ok {
			jobID = strings.TrimSpace(after)
		}
	}
	if jobID == "" {
		t.Fatalf("no job id in submit output:\n%s", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "standup.mp4")
	requireContains(t, out, "initiated")

	out, err = runCLI(t, "--config", cfgPath, "show", jobID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "File:     standup.mp4")
	requireContains(t, out, "Status:   initiated")
}

func TestSubmitRejectsMissingFile(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfgPath, "submit", filepath.Join(t.TempDir(), "ghost.mp4")); err == nil {
		t.Fatal("expected error for missing source file")
	}
}

func TestStatusSummarizesQueue(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCLI(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Queue database:")
	requireContains(t, out, "Total")
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCLI(t, "--config", cfgPath, "queue", "list", "--status", "imaginary"); err == nil {
		t.Fatal("expected error for unknown status filter")
	}
}
