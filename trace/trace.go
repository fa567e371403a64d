// ============================================================================
// ACCESS TRACE READERS
// ============================================================================
//
// Decodes recorded cache-access streams into types.AccessEvent for replay.
//
// Text format, one access per line, whitespace separated:
//
//	cpu pc addr hit type [critical]
//
//	0 0x401000 0x7ffd1040 0 load
//	1 401004   7ffd2000   1 rfo 1
//
//   - pc and addr are hex, the 0x prefix is optional
//   - hit and critical are 0/1 or true/false
//   - type is a name (load, rfo, prefetch, writeback, translation) or its number
//   - '#' starts a comment, blank lines are skipped
//
// JSON-lines format, one object per line:
//
//	{"cpu":0,"pc":"0x401000","addr":"0x7ffd1040","hit":false,"type":"load","critical":false}
//
// Both readers return io.EOF at the end of input and wrap ErrMalformed with the
// offending line number otherwise.
// ============================================================================

package trace

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sugawarayuuta/sonnet"

	"rlpf/types"
	"rlpf/utils"
)

// ErrMalformed reports an undecodable trace line.
var ErrMalformed = errors.New("malformed trace")

// Reader yields access events in trace order.
type Reader interface {
	Next() (types.AccessEvent, error)
}

// File is a Reader over an opened trace file.
type File struct {
	Reader
	f *os.File
}

// Close releases the underlying file.
func (f *File) Close() error { return f.f.Close() }

// Open opens path and picks the decoder by extension: .jsonl and .json are
// JSON-lines, anything else is text.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var r Reader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		r = NewJSONReader(f)
	default:
		r = NewTextReader(f)
	}
	return &File{Reader: r, f: f}, nil
}

// ============================================================================
// TEXT
// ============================================================================

// TextReader decodes the whitespace format.
type TextReader struct {
	sc   *bufio.Scanner
	line int
}

// NewTextReader wraps r.
func NewTextReader(r io.Reader) *TextReader {
	return &TextReader{sc: bufio.NewScanner(r)}
}

// Next returns the next access.
func (t *TextReader) Next() (types.AccessEvent, error) {
	for t.sc.Scan() {
		t.line++
		raw := t.sc.Bytes()
		if i := bytes.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}
		f := bytes.Fields(raw)
		if len(f) == 0 {
			continue
		}
		ev, err := parseFields(f)
		if err != nil {
			return ev, fmt.Errorf("%w: line %d: %v", ErrMalformed, t.line, err)
		}
		return ev, nil
	}
	if err := t.sc.Err(); err != nil {
		return types.AccessEvent{}, err
	}
	return types.AccessEvent{}, io.EOF
}

func parseFields(f [][]byte) (types.AccessEvent, error) {
	var ev types.AccessEvent
	if len(f) != 5 && len(f) != 6 {
		return ev, fmt.Errorf("want 5 or 6 fields, got %d", len(f))
	}

	cpu, err := strconv.ParseUint(utils.B2s(f[0]), 10, 16)
	if err != nil {
		return ev, fmt.Errorf("cpu %q", f[0])
	}
	ev.CPU = uint16(cpu)

	if !utils.IsHex(f[1]) {
		return ev, fmt.Errorf("pc %q", f[1])
	}
	ev.PC = utils.ParseHexU64(f[1])

	if !utils.IsHex(f[2]) {
		return ev, fmt.Errorf("addr %q", f[2])
	}
	ev.Addr = utils.ParseHexU64(f[2])

	if ev.Hit, err = parseBool(f[3]); err != nil {
		return ev, fmt.Errorf("hit %q", f[3])
	}
	if ev.Type, err = parseType(utils.B2s(f[4])); err != nil {
		return ev, err
	}
	if len(f) == 6 {
		if ev.Critical, err = parseBool(f[5]); err != nil {
			return ev, fmt.Errorf("critical %q", f[5])
		}
	}
	return ev, nil
}

func parseBool(b []byte) (bool, error) {
	switch utils.B2s(b) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func parseType(s string) (types.AccessType, error) {
	if t, ok := types.ParseAccessType(s); ok {
		return t, nil
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && types.AccessType(n).Valid() {
		return types.AccessType(n), nil
	}
	return 0, fmt.Errorf("type %q", s)
}

// ============================================================================
// JSON LINES
// ============================================================================

type record struct {
	CPU      uint16 `json:"cpu"`
	PC       string `json:"pc"`
	Addr     string `json:"addr"`
	Hit      bool   `json:"hit"`
	Type     string `json:"type"`
	Critical bool   `json:"critical"`
}

// JSONReader decodes one JSON object per line.
type JSONReader struct {
	sc   *bufio.Scanner
	line int
}

// NewJSONReader wraps r.
func NewJSONReader(r io.Reader) *JSONReader {
	return &JSONReader{sc: bufio.NewScanner(r)}
}

// Next returns the next access.
func (j *JSONReader) Next() (types.AccessEvent, error) {
	for j.sc.Scan() {
		j.line++
		raw := bytes.TrimSpace(j.sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var rec record
		if err := sonnet.Unmarshal(raw, &rec); err != nil {
			return types.AccessEvent{}, fmt.Errorf("%w: line %d: %v", ErrMalformed, j.line, err)
		}
		ev, err := rec.event()
		if err != nil {
			return ev, fmt.Errorf("%w: line %d: %v", ErrMalformed, j.line, err)
		}
		return ev, nil
	}
	if err := j.sc.Err(); err != nil {
		return types.AccessEvent{}, err
	}
	return types.AccessEvent{}, io.EOF
}

func (r *record) event() (types.AccessEvent, error) {
	ev := types.AccessEvent{CPU: r.CPU, Hit: r.Hit, Critical: r.Critical}
	if !utils.IsHex([]byte(r.PC)) {
		return ev, fmt.Errorf("pc %q", r.PC)
	}
	if !utils.IsHex([]byte(r.Addr)) {
		return ev, fmt.Errorf("addr %q", r.Addr)
	}
	ev.PC = utils.ParseHexU64([]byte(r.PC))
	ev.Addr = utils.ParseHexU64([]byte(r.Addr))
	typ := r.Type
	if typ == "" {
		typ = types.Load.String()
	}
	var err error
	ev.Type, err = parseType(typ)
	return ev, err
}

// ============================================================================
// WRITER
// ============================================================================

// WriteText encodes ev in the text format. Used to generate traces and fixtures.
func WriteText(w io.Writer, ev types.AccessEvent) error {
	line := utils.Itoa(int(ev.CPU)) + " " + utils.Xtoa(ev.PC) + " " + utils.Xtoa(ev.Addr) + " " +
		boolDigit(ev.Hit) + " " + ev.Type.String()
	if ev.Critical {
		line += " 1"
	}
	_, err := io.WriteString(w, line+"\n")
	return err
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
