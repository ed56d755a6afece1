package repository

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
)

// ErrSchemaMismatch is returned when an existing store was written with different columns.
var ErrSchemaMismatch = errors.New("record store header does not match the current schema")

// StoreWriteError reports a failed append. The row is not in the store and the
// document may be retried.
type StoreWriteError struct {
	Path string
	URL  string
	Err  error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("append %s to %s: %v", e.URL, e.Path, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// StoredRow is a committed row read back from the store.
type StoredRow struct {
	Idx    int64
	URL    string
	Values map[string]string
}

// RecordStore is an append-only tab-separated file. The first two lines are the
// column names and the column kinds; each later line is one committed record.
type RecordStore struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	size   int64
	logger *slog.Logger
}

// OpenRecordStore opens or creates the store at path. A trailing line left
// incomplete by a crash is cut off before anything else is appended.
func OpenRecordStore(path string, logger *slog.Logger) (*RecordStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	s := &RecordStore{path: path, f: f, logger: logger}

	if err := s.repairTail(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if s.size == 0 {
		if err := s.writeHeader(); err != nil {
			_ = f.Close()
			return nil, err
		}
	} else if err := s.checkHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}

	logger.Info("store.opened", "path", path, "bytes", s.size)
	return s, nil
}

// Path returns the file path of the store.
func (s *RecordStore) Path() string { return s.path }

// Close releases the underlying file.
func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Append writes exactly one complete row and syncs it to disk before returning.
func (s *RecordStore) Append(rec entity.ExtractedRecord) error {
	if rec.Idx < 0 {
		return &StoreWriteError{Path: s.path, URL: rec.URL(), Err: errors.New("record has no idx")}
	}
	line, err := encodeRow(rec.Row())
	if err != nil {
		return &StoreWriteError{Path: s.path, URL: rec.URL(), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return &StoreWriteError{Path: s.path, URL: rec.URL(), Err: os.ErrClosed}
	}

	n, err := s.f.Write(line)
	if err == nil {
		err = s.f.Sync()
	}
	if err != nil {
		// drop whatever part of the row reached the file
		if n > 0 {
			if terr := s.f.Truncate(s.size); terr != nil {
				s.logger.Error("store.truncate_failed", "path", s.path, "error", terr)
			}
		}
		return &StoreWriteError{Path: s.path, URL: rec.URL(), Err: err}
	}
	s.size += int64(n)
	s.logger.Debug("store.appended", "idx", rec.Idx, "url", rec.URL())
	return nil
}

// StoreScan is the readable content of the store. Unreadable holds the file line
// numbers of rows that could not be parsed.
type StoreScan struct {
	Rows       []StoredRow
	Unreadable []int
}

// Rows reads every readable committed row in file order.
func (s *RecordStore) Rows() ([]StoredRow, error) {
	sc, err := s.Scan()
	return sc.Rows, err
}

// Scan reads the store like Rows and also reports which lines were skipped.
// A damaged row never hides the rows after it.
func (s *RecordStore) Scan() (StoreScan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out StoreScan
	f, err := os.Open(s.path)
	if err != nil {
		return out, fmt.Errorf("open record store: %w", err)
	}
	defer f.Close()

	r := newReader(io.LimitReader(f, s.size))
	if _, err := readHeader(r); err != nil {
		return out, err
	}

	urlPos := slices.Index(constants.Columns, constants.ColumnURL)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			s.unreadable(&out, perr.StartLine, perr)
			continue
		}
		if err != nil {
			return out, fmt.Errorf("read record store: %w", err)
		}
		idx, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			line, _ := r.FieldPos(0)
			s.unreadable(&out, line, fmt.Errorf("bad idx %q: %w", rec[0], err))
			continue
		}
		values := make(map[string]string, len(constants.Columns))
		for i, c := range constants.Columns {
			values[c] = rec[i]
		}
		out.Rows = append(out.Rows, StoredRow{Idx: idx, URL: rec[urlPos], Values: values})
	}
	return out, nil
}

func (s *RecordStore) unreadable(out *StoreScan, line int, err error) {
	out.Unreadable = append(out.Unreadable, line)
	s.logger.Error("store.row_unreadable", "path", s.path, "line", line, "error", err)
}

func (s *RecordStore) writeHeader() error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	_ = w.Write(constants.Columns)
	_ = w.Write(constants.ColumnKinds())
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode store header: %w", err)
	}
	n, err := s.f.Write(buf.Bytes())
	if err == nil {
		err = s.f.Sync()
	}
	if err != nil {
		return fmt.Errorf("write store header: %w", err)
	}
	s.size = int64(n)
	return nil
}

func (s *RecordStore) checkHeader() error {
	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("read store header: %w", err)
	}
	header, err := readHeader(newReader(bufio.NewReader(s.f)))
	if err != nil {
		return err
	}
	if !slices.Equal(header[0], constants.Columns) || !slices.Equal(header[1], constants.ColumnKinds()) {
		return fmt.Errorf("%s: %w", s.path, ErrSchemaMismatch)
	}
	return nil
}

// repairTail truncates the file after its last newline.
func (s *RecordStore) repairTail() error {
	info, err := s.f.Stat()
	if err != nil {
		return fmt.Errorf("stat record store: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	const chunk = 4096
	buf := make([]byte, chunk)
	end := size
	for end > 0 {
		start := max(end-chunk, 0)
		n, err := s.f.ReadAt(buf[:end-start], start)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read record store tail: %w", err)
		}
		if i := bytes.LastIndexByte(buf[:n], '\n'); i >= 0 {
			keep := start + int64(i) + 1
			if keep < size {
				s.logger.Warn("store.torn_tail_truncated", "path", s.path, "dropped_bytes", size-keep)
				if err := s.f.Truncate(keep); err != nil {
					return fmt.Errorf("truncate torn tail: %w", err)
				}
			}
			s.size = keep
			return nil
		}
		end = start
	}

	s.logger.Warn("store.torn_tail_truncated", "path", s.path, "dropped_bytes", size)
	if err := s.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate torn tail: %w", err)
	}
	s.size = 0
	return nil
}

func readHeader(r *csv.Reader) ([2][]string, error) {
	var header [2][]string
	for i := range header {
		row, err := r.Read()
		if err != nil {
			return header, fmt.Errorf("read store header: %w", ErrSchemaMismatch)
		}
		header[i] = row
	}
	return header, nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(constants.Columns)
	cr.ReuseRecord = false
	return cr
}

func encodeRow(row []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	if err := w.Write(row); err != nil {
		return nil, err
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
