package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"harvest-hq/gateway/pkg/cli"
	"harvest-hq/gateway/pkg/config"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantErr  bool
		wantText string
	}{
		{
			name:     "defaults",
			yaml:     "server:\n  listen_address: \"127.0.0.1:11435\"\n",
			wantText: "Configuration valid",
		},
		{
			name:     "bad sqlite driver",
			yaml:     "history:\n  backend: sqlite\n  sqlite:\n    driver: postgres\n",
			wantErr:  true,
			wantText: "history.sqlite.driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			orig := cfgFile
			cfgFile = path
			defer func() { cfgFile = orig }()

			cmd, out := newTestCommand()
			err := validateConfig(cmd, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && cli.ExitCode(err) != cli.ExitConfig {
				t.Errorf("ExitCode = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
			}
			if !strings.Contains(out.String(), tt.wantText) {
				t.Errorf("output %q does not contain %q", out.String(), tt.wantText)
			}
		})
	}
}

func TestRetentionOverrides(t *testing.T) {
	resetHistoryFlags(t)
	historyFlags.maxAgeDays = 7

	got := retentionOverrides(config.RetentionConfig{MaxAgeDays: 30, MaxRecords: 50})
	if got.MaxAgeDays != 7 {
		t.Errorf("MaxAgeDays = %d, want 7", got.MaxAgeDays)
	}
	if got.MaxRecords != 50 {
		t.Errorf("MaxRecords = %d, want 50 (unchanged)", got.MaxRecords)
	}
}
