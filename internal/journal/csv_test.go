package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
)

func TestCSVJournalWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.csv")
	j, err := NewCSVJournal(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCSVJournal: %v", err)
	}

	entry := Entry{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Symbol:    "BTC-USDT",
		Action:    model.ActionBuy,
		Entry:     100.5,
		StopLoss:  98.25,
		TakeProf:  107.25,
		Size:      0.5,
		Reason:    "LOW_SWEEP_RECLAIM_STRONG",
	}

	if err := j.Record(entry); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	entry.Action = model.ActionSell
	if err := j.Record(entry); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][7] != "reason" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][2] != "BUY" || rows[2][2] != "SELL" {
		t.Errorf("unexpected actions: %v / %v", rows[1][2], rows[2][2])
	}
	if rows[1][1] != "BTC-USDT" {
		t.Errorf("unexpected symbol: %v", rows[1][1])
	}
}

func TestCSVJournalCreatesMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "journal.csv")
	j, err := NewCSVJournal(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewCSVJournal: %v", err)
	}

	if err := j.Record(Entry{Timestamp: time.Now(), Symbol: "ETH-USDT", Action: model.ActionBuy}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("journal file missing: %v", err)
	}
}
