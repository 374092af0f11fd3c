package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jfmyers9/wrapped/internal/journal"
)

func seedAttempt(t *testing.T, j *journal.Journal, owner, state, imageCID, metadataCID string) string {
	t.Helper()
	ctx := context.Background()

	id, err := j.Start(ctx, owner, "idle")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := j.Update(ctx, id, journal.Progress{ImageCID: imageCID, MetadataCID: metadataCID}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := j.Finish(ctx, id, state, ""); err != nil {
		t.Fatalf("finish: %v", err)
	}
	return id
}

func TestBacksHeldCard(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = j.Close() }()

	seedAttempt(t, j, "0xabc", journal.StateDone, "QmOldImage", "QmOldMeta")
	seedAttempt(t, j, "0xabc", journal.StateDone, "QmHeldImage", "QmHeldMeta")
	seedAttempt(t, j, "0xabc", "failed", "QmLeftImage", "")
	seedAttempt(t, j, "0xdef", "failed", "QmOtherImage", "")

	tests := []struct {
		cid  string
		want bool
	}{
		{cid: "QmHeldMeta", want: true},
		{cid: "QmHeldImage", want: true},
		{cid: "QmOldMeta", want: false},
		{cid: "QmOldImage", want: false},
		{cid: "QmLeftImage", want: false},
		{cid: "QmOtherImage", want: false},
		{cid: "QmNeverJournaled", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.cid, func(t *testing.T) {
			got, err := backsHeldCard(context.Background(), j, tt.cid)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("backsHeldCard(%q) = %v, want %v", tt.cid, got, tt.want)
			}
		})
	}
}

func TestFindAttempt(t *testing.T) {
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = j.Close() }()
	ctx := context.Background()

	id := seedAttempt(t, j, "0xabc", journal.StateDone, "QmImage", "QmMeta")

	a, err := findAttempt(ctx, j, id)
	if err != nil || a == nil || a.ID != id {
		t.Fatalf("exact id: got %+v, %v", a, err)
	}

	a, err = findAttempt(ctx, j, id[:8])
	if err != nil || a == nil || a.ID != id {
		t.Fatalf("prefix: got %+v, %v", a, err)
	}

	a, err = findAttempt(ctx, j, "QmMeta")
	if err != nil || a != nil {
		t.Fatalf("a cid is not an attempt: got %+v, %v", a, err)
	}
}
