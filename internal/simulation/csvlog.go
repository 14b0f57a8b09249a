package simulation

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"
	"time"
)

// pullLogger appends one CSV row per update: timestamp, step, arm, reward
// and full counts/values snapshots. The file is append-only; the header is
// written only when the file is created.
type pullLogger struct {
	file   *os.File
	writer *csv.Writer
	path   string
}

func newPullLogger(path string) (*pullLogger, error) {
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write([]string{"timestamp", "step", "arm", "reward", "counts", "values"}); err != nil {
			_ = f.Close()
			return nil, err
		}
		w.Flush()
	}
	return &pullLogger{file: f, writer: w, path: path}, nil
}

// Append writes one record and flushes, so every completed update is on disk
// even if the process dies mid-batch.
func (l *pullLogger) Append(step int64, arm int, reward int, counts []int64, values []float64) error {
	record := []string{
		time.Now().Format(time.RFC3339Nano),
		strconv.FormatInt(step, 10),
		strconv.Itoa(arm),
		strconv.Itoa(reward),
		joinInts(counts),
		joinFloats(values),
	}
	if err := l.writer.Write(record); err != nil {
		return err
	}
	l.writer.Flush()
	return l.writer.Error()
}

func (l *pullLogger) Close() error {
	return l.file.Close()
}

// Remove closes the log and deletes the file. Used by session reset.
func (l *pullLogger) Remove() error {
	_ = l.file.Close()
	return os.Remove(l.path)
}

func joinInts(xs []int64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatInt(x, 10)
	}
	return strings.Join(parts, ";")
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'f', 6, 64)
	}
	return strings.Join(parts, ";")
}
