package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"harvest-hq/gateway/pkg/cli"
	"harvest-hq/gateway/pkg/history"
)

// writeHistoryFixture creates a config pointing at a jsonl log holding n
// turns, one per day ending today, and selects it as cfgFile.
func writeHistoryFixture(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "chat_history.jsonl")

	var lines strings.Builder
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		ts := now.AddDate(0, 0, i-n+1).Format(time.RFC3339Nano)
		fmt.Fprintf(&lines,
			`{"timestamp":%q,"model":"llama3","messages":[{"role":"user","content":"question %d"},{"role":"assistant","content":"answer %d"}]}`+"\n",
			ts, i+1, i+1)
	}
	if err := os.WriteFile(logPath, []byte(lines.String()), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := fmt.Sprintf("history:\n  backend: jsonl\n  jsonl:\n    path: %q\n", logPath)
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	orig := cfgFile
	cfgFile = cfgPath
	t.Cleanup(func() { cfgFile = orig })
	return logPath
}

func resetHistoryFlags(t *testing.T) {
	t.Helper()
	orig := historyFlags
	historyFlags.limit = 0
	historyFlags.format = "text"
	historyFlags.maxAgeDays = -1
	historyFlags.maxRecords = -1
	t.Cleanup(func() { historyFlags = orig })
}

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	return cmd, &buf
}

func TestListHistory(t *testing.T) {
	writeHistoryFixture(t, 3)
	resetHistoryFlags(t)
	historyFlags.limit = 2
	historyFlags.format = "json"

	cmd, out := newTestCommand()
	if err := listHistory(cmd, nil); err != nil {
		t.Fatalf("listHistory: %v", err)
	}

	var records []history.Record
	if err := json.Unmarshal(out.Bytes(), &records); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out.String())
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if got := records[0].Messages[1].Content; got != "answer 3" {
		t.Errorf("newest record content = %q, want %q", got, "answer 3")
	}
}

func TestListHistory_Text(t *testing.T) {
	writeHistoryFixture(t, 1)
	resetHistoryFlags(t)

	cmd, out := newTestCommand()
	if err := listHistory(cmd, nil); err != nil {
		t.Fatalf("listHistory: %v", err)
	}
	if !strings.Contains(out.String(), "assistant: answer 1") {
		t.Errorf("text output missing last message:\n%s", out.String())
	}
}

func TestListHistory_BadOutput(t *testing.T) {
	writeHistoryFixture(t, 1)
	resetHistoryFlags(t)
	historyFlags.format = "yaml"

	cmd, _ := newTestCommand()
	err := listHistory(cmd, nil)
	if cli.ExitCode(err) != cli.ExitConfig {
		t.Errorf("ExitCode(%v) = %d, want %d", err, cli.ExitCode(err), cli.ExitConfig)
	}
}

func TestPruneHistory(t *testing.T) {
	logPath := writeHistoryFixture(t, 5)
	resetHistoryFlags(t)
	historyFlags.maxRecords = 2

	cmd, out := newTestCommand()
	if err := pruneHistory(cmd, nil); err != nil {
		t.Fatalf("pruneHistory: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 3 turns") {
		t.Errorf("output = %q", out.String())
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("log has %d lines after prune, want 2", lines)
	}
}

func TestPruneHistory_NoLimit(t *testing.T) {
	writeHistoryFixture(t, 1)
	resetHistoryFlags(t)

	cmd, _ := newTestCommand()
	err := pruneHistory(cmd, nil)

	var cfgErr *cli.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *cli.ConfigError", err)
	}
}
