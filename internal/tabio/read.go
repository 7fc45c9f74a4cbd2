package tabio

import (
	"bytes"
	"encoding/csv"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
)

// ReadTSV reads a tab-separated table, eg a ProteomeDiscoverer
// PeptideGroups export.
func ReadTSV(path string) (*Table, error) {
	return ReadDelim(path, '\t')
}

// ReadCSV reads a comma-separated table, eg a previously written
// union or overview table.
func ReadCSV(path string) (*Table, error) {
	return ReadDelim(path, ',')
}

// ReadDelim reads a whole delimited table into memory. The first row is the
// header. Short rows are padded to the header width, long rows truncated.
func ReadDelim(path string, comma rune) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read table %s", path)
	}

	text, err := decode(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse table %s", path)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}

	t := &Table{Columns: rows[0]}
	for _, row := range rows[1:] {
		for len(row) < len(t.Columns) {
			row = append(row, "")
		}
		t.Rows = append(t.Rows, row[:len(t.Columns)])
	}
	return t, nil
}

// decode converts raw table bytes to a UTF-8 string. ProteomeDiscoverer
// exports are UTF-8 or UTF-16; anything else is rejected.
func decode(raw []byte) (string, error) {
	if bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF}) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(raw)
		if err != nil {
			return "", errors.Wrap(err, "invalid UTF-16")
		}
		return string(out), nil
	}
	raw = bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(raw) {
		return "", errors.New("unreadable encoding: only UTF-8 and UTF-16 are supported")
	}
	return string(raw), nil
}
