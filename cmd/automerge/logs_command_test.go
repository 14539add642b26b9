package main

import (
	"strings"
	"testing"
)

func TestLogsShowsLatestTaskRun(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t)

	if _, _, err := runCLI(t, []string{"merge", "--local"}, env.configPath); err != nil {
		t.Fatalf("merge: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--task", "merge", "-n", "200"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "merge task finished")

	out, _, err = runCLI(t, []string{"logs", "--list"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --list: %v", err)
	}
	requireContains(t, strings.ToLower(out), "merge")

	if _, _, err := runCLI(t, []string{"logs", "--task", "split"}, env.configPath); err == nil {
		t.Fatal("expected error when no split run exists")
	}
}
