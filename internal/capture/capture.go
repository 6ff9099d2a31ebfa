// Package capture records raw input chunks to disk and reads them back.
//
// A capture file is a stream of Record values encoded back to back in either
// MessagePack or CBOR. The format is chosen from the file extension (.msgpack
// or .cbor), so a file can be replayed without any other metadata.
package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Format is the encoding of a capture file.
type Format string

const (
	FormatMsgpack Format = "msgpack"
	FormatCBOR    Format = "cbor"
)

// ParseFormat accepts "msgpack" or "cbor".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatMsgpack:
		return FormatMsgpack, nil
	case FormatCBOR:
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("unknown capture format %q (want msgpack or cbor)", s)
	}
}

// FormatFromPath derives the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Record is one chunk of bytes received from a peer.
type Record struct {
	At     int64  `msgpack:"at" cbor:"1,keyasint"` // Unix nanoseconds
	Remote string `msgpack:"remote,omitempty" cbor:"2,keyasint,omitempty"`
	Data   []byte `msgpack:"data" cbor:"3,keyasint"`
}

// NewRecord stamps data with the current time.
func NewRecord(remote string, data []byte) Record {
	return Record{At: time.Now().UnixNano(), Remote: remote, Data: data}
}

// Time returns the receive time of the record.
func (r Record) Time() time.Time { return time.Unix(0, r.At) }

type encoder interface {
	Encode(v interface{}) error
}

type decoder interface {
	Decode(v interface{}) error
}

// Writer appends records to a capture stream. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	enc    encoder
	closer io.Closer
	count  int
}

// NewWriter encodes records to w in format f.
func NewWriter(w io.Writer, f Format) (*Writer, error) {
	bw := bufio.NewWriter(w)
	cw := &Writer{bw: bw}
	switch f {
	case FormatMsgpack:
		cw.enc = msgpack.NewEncoder(bw)
	case FormatCBOR:
		cw.enc = cbor.NewEncoder(bw)
	default:
		return nil, fmt.Errorf("unknown capture format %q", f)
	}
	if c, ok := w.(io.Closer); ok {
		cw.closer = c
	}
	return cw, nil
}

// Create opens a new capture file in dir named after prefix and the current
// time. The directory is created if needed.
func Create(dir, prefix string, f Format) (*Writer, string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create capture directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s.%s", sanitize(prefix), time.Now().UTC().Format("20060102T150405.000000000"), f)
	path := filepath.Join(dir, name)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create capture file: %w", err)
	}
	w, err := NewWriter(file, f)
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, "", err
	}
	return w, path, nil
}

// sanitize makes a remote address usable in a file name.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// Write encodes rec and flushes it to the underlying writer.
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(&rec); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes and closes the underlying writer if it is an io.Closer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.bw.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Reader decodes records from a capture stream.
type Reader struct {
	dec    decoder
	closer io.Closer
}

// NewReader decodes records in format f from r.
func NewReader(r io.Reader, f Format) (*Reader, error) {
	br := bufio.NewReader(r)
	cr := &Reader{}
	switch f {
	case FormatMsgpack:
		cr.dec = msgpack.NewDecoder(br)
	case FormatCBOR:
		cr.dec = cbor.NewDecoder(br)
	default:
		return nil, fmt.Errorf("unknown capture format %q", f)
	}
	if c, ok := r.(io.Closer); ok {
		cr.closer = c
	}
	return cr, nil
}

// Open opens a capture file, taking the format from its extension.
func Open(path string) (*Reader, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	return NewReader(file, f)
}

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode capture record: %w", err)
	}
	return rec, nil
}

// Close closes the underlying reader if it is an io.Closer.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
