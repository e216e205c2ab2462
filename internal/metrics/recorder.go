package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"
	"time"
)

// Column order is fixed; external analysis tooling reads this store by
// position and never writes to it.
var columns = []string{
	"timestamp",
	"client_ip",
	"client_port",
	"filename",
	"file_size_bytes",
	"duration_seconds",
	"throughput_bytes_per_second",
}

const timestampLayout = "2006-01-02T15:04:05"

// TransferRecord describes one completed transfer. Created once,
// immediately after the payload drain finishes, and never mutated.
type TransferRecord struct {
	Timestamp                time.Time
	ClientAddress            string
	ClientPort               int
	Filename                 string
	FileSizeBytes            uint64
	DurationSeconds          float64
	ThroughputBytesPerSecond float64
}

// NewTransferRecord computes throughput from size and duration, with 0
// substituted when the duration is zero so sub-resolution transfers do
// not fail the record.
func NewTransferRecord(ts time.Time, addr string, port int, filename string, size uint64, duration time.Duration) TransferRecord {
	seconds := duration.Seconds()
	throughput := 0.0
	if seconds > 0 {
		throughput = float64(size) / seconds
	}
	return TransferRecord{
		Timestamp:                ts,
		ClientAddress:            addr,
		ClientPort:               port,
		Filename:                 filename,
		FileSizeBytes:            size,
		DurationSeconds:          seconds,
		ThroughputBytesPerSecond: throughput,
	}
}

// Recorder appends transfer records to an append-only CSV store. The
// header row is written exactly once, only when the store does not yet
// exist. The sequential accept loop is the only writer today; the mutex
// keeps the store safe should a concurrent receiver ever share one
// Recorder.
type Recorder struct {
	mu   sync.Mutex
	path string
}

func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

func (r *Recorder) Path() string {
	return r.path
}

func (r *Recorder) Append(rec TransferRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, statErr := os.Stat(r.path)
	writeHeader := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("metrics: open store %s: %w", r.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(columns); err != nil {
			return fmt.Errorf("metrics: write header: %w", err)
		}
	}
	row := []string{
		rec.Timestamp.Format(timestampLayout),
		rec.ClientAddress,
		strconv.Itoa(rec.ClientPort),
		rec.Filename,
		strconv.FormatUint(rec.FileSizeBytes, 10),
		fmt.Sprintf("%.6f", rec.DurationSeconds),
		fmt.Sprintf("%.6f", rec.ThroughputBytesPerSecond),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("metrics: write record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("metrics: flush store: %w", err)
	}
	return nil
}
