package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"harvest-hq/gateway/pkg/config"
	"harvest-hq/gateway/pkg/history"
	"harvest-hq/gateway/pkg/proxy/types"
)

// fakeTarget records the calls made by the pruner.
type fakeTarget struct {
	cutoff    time.Time
	trimmedTo int64
	deleted   int64
	trimmed   int64
	err       error
}

func (f *fakeTarget) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.deleted, f.err
}

func (f *fakeTarget) TrimTo(_ context.Context, max int64) (int64, error) {
	f.trimmedTo = max
	return f.trimmed, f.err
}

func TestPruner_Prune(t *testing.T) {
	now := time.Date(2024, 6, 10, 3, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		cfg        config.RetentionConfig
		target     *fakeTarget
		want       int64
		wantCutoff time.Time
		wantTrim   int64
		wantErr    bool
	}{
		{
			name:       "age only",
			cfg:        config.RetentionConfig{MaxAgeDays: 7},
			target:     &fakeTarget{deleted: 3},
			want:       3,
			wantCutoff: now.AddDate(0, 0, -7),
		},
		{
			name:     "count only",
			cfg:      config.RetentionConfig{MaxRecords: 100},
			target:   &fakeTarget{trimmed: 5},
			want:     5,
			wantTrim: 100,
		},
		{
			name:       "both",
			cfg:        config.RetentionConfig{MaxAgeDays: 30, MaxRecords: 10},
			target:     &fakeTarget{deleted: 2, trimmed: 4},
			want:       6,
			wantCutoff: now.AddDate(0, 0, -30),
			wantTrim:   10,
		},
		{
			name:   "no limits",
			cfg:    config.RetentionConfig{},
			target: &fakeTarget{deleted: 9, trimmed: 9},
			want:   0,
		},
		{
			name:    "store error",
			cfg:     config.RetentionConfig{MaxAgeDays: 1},
			target:  &fakeTarget{err: errors.New("locked")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPruner(tt.target, tt.cfg)
			p.now = func() time.Time { return now }

			got, err := p.Prune(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Prune() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("Prune() = %d, want %d", got, tt.want)
			}
			if !tt.target.cutoff.Equal(tt.wantCutoff) {
				t.Errorf("cutoff = %v, want %v", tt.target.cutoff, tt.wantCutoff)
			}
			if tt.target.trimmedTo != tt.wantTrim {
				t.Errorf("trimmed to %d, want %d", tt.target.trimmedTo, tt.wantTrim)
			}
		})
	}
}

func TestPruner_MemoryStore(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemoryStore()
	for i := 0; i < 5; i++ {
		msgs := []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}}
		if err := store.Add(ctx, "m", msgs); err != nil {
			t.Fatalf("Add() failed: %v", err)
		}
	}

	p := NewPruner(store, config.RetentionConfig{MaxRecords: 2})
	deleted, err := p.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	records, _ := store.Recent(ctx, 10)
	if len(records) != 2 || records[0].ID != 5 || records[1].ID != 4 {
		t.Errorf("unexpected remaining records: %+v", records)
	}
}
