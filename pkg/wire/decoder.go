package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const maxRecordSize = 4 << 20

// Decoder reads NDJSON records. Lines that are not JSON objects are skipped so
// that a child can share its output with other writers.
type Decoder struct {
	sc      *bufio.Scanner
	skipped int
}

// NewDecoder reads records from r.
func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxRecordSize)
	return &Decoder{sc: sc}
}

// Next returns the next record, or io.EOF at the end of the input.
func (d *Decoder) Next() (Record, error) {
	for d.sc.Scan() {
		line := bytes.TrimSpace(d.sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			if len(line) > 0 {
				d.skipped++
			}
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return Record{}, fmt.Errorf("decode record: %w", err)
		}
		return rec, nil
	}
	if err := d.sc.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

// Skipped is the number of non-record lines seen so far.
func (d *Decoder) Skipped() int {
	return d.skipped
}
