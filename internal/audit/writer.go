// Package audit 金库流水归档，按小时切分的zstd压缩JSONL文件
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/wfunc/feudal-economy/internal/models"
)

const hourLayout = "2006-01-02-15"

// Record 归档的一行
type Record struct {
	ID            uint   `json:"id"`
	FamilyID      uint   `json:"family_id"`
	SourceAgentID int64  `json:"source_agent_id"`
	Amount        int    `json:"amount"`
	Reason        string `json:"reason"`
	CreatedAtMs   int64  `json:"created_at_ms"`
}

// LedgerWriter 流水归档写入器，按流水时间所在小时切换文件
type LedgerWriter struct {
	dir    string
	prefix string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewLedgerWriter 创建写入器
func NewLedgerWriter(dir string) *LedgerWriter {
	return &LedgerWriter{dir: dir, prefix: "ledger"}
}

// Write 追加一条流水
func (w *LedgerWriter) Write(entry *models.TaxLedger) error {
	if entry == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.UnixMilli(entry.CreatedAtMs).UTC().Format(hourLayout)
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(Record{
		ID:            entry.ID,
		FamilyID:      entry.FamilyID,
		SourceAgentID: entry.SourceAgentID,
		Amount:        entry.Amount,
		Reason:        entry.Reason,
		CreatedAtMs:   entry.CreatedAtMs,
	})
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	// 立即编码当前块，未关闭的文件也能读到已写入的流水
	return w.enc.Flush()
}

// Close 关闭当前文件
func (w *LedgerWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// PathForHour 某小时的归档文件路径
func (w *LedgerWriter) PathForHour(t time.Time) string {
	return w.pathFor(t.UTC().Format(hourLayout))
}

func (w *LedgerWriter) pathFor(hour string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

func (w *LedgerWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathFor(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *LedgerWriter) closeLocked() error {
	var err error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

// ReadFile 读取一个归档文件的全部记录，正在写入的文件读到最后一个完整块为止
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []Record
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return out, err
	}
	return out, nil
}
