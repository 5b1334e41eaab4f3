// Package journal 记录每一笔下单决策，供离线复盘。
package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"smc-sweep-trader/internal/model"
)

// Entry 是交易日志中的一行。
type Entry struct {
	Timestamp time.Time
	Symbol    string
	Action    model.ActionType
	Entry     float64
	StopLoss  float64
	TakeProf  float64
	Size      float64
	Reason    string
}

var csvHeader = []string{"timestamp", "symbol", "action", "entry", "sl", "tp", "size", "reason"}

// CSVJournal 把下单记录追加到 CSV 文件，文件不存在时先写表头。
type CSVJournal struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewCSVJournal(path string, logger *zap.Logger) (*CSVJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal dir: %w", err)
	}
	return &CSVJournal{
		path:   path,
		logger: logger.With(zap.String("component", "csv_journal")),
	}, nil
}

// Record 追加一行。每次打开关闭文件，崩溃也不会丢已写的行。
func (j *CSVJournal) Record(entry Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, statErr := os.Stat(j.path)
	writeHeader := os.IsNotExist(statErr)

	file, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal open: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(csvHeader); err != nil {
			return fmt.Errorf("journal header: %w", err)
		}
	}

	row := []string{
		entry.Timestamp.UTC().Format(time.RFC3339),
		entry.Symbol,
		entry.Action.String(),
		fmt.Sprintf("%.8f", entry.Entry),
		fmt.Sprintf("%.8f", entry.StopLoss),
		fmt.Sprintf("%.8f", entry.TakeProf),
		fmt.Sprintf("%.8f", entry.Size),
		entry.Reason,
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("journal write: %w", err)
	}

	writer.Flush()
	return writer.Error()
}
