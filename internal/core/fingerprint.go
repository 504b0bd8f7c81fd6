package core

import (
	"github.com/cespare/xxhash/v2"
)

// Separators keep distinct cell layouts from hashing alike.
const (
	unitSep   = "\x1f"
	recordSep = "\x1e"
	groupSep  = "\x1d"
)

// Fingerprint hashes the content of every source. Two source sets with the
// same kinds, headers and cells in the same order share a fingerprint; table
// names and file formats do not contribute.
func (s Sources) Fingerprint() uint64 {
	d := xxhash.New()
	for _, t := range s.tables() {
		writeTable(d, t)
	}
	return d.Sum64()
}

// Fingerprint hashes a single table.
func (t *Table) Fingerprint() uint64 {
	d := xxhash.New()
	writeTable(d, t)
	return d.Sum64()
}

func writeTable(d *xxhash.Digest, t *Table) {
	if t == nil {
		_, _ = d.WriteString(groupSep)
		return
	}
	_, _ = d.WriteString(string(t.Kind))
	_, _ = d.WriteString(recordSep)
	writeRow(d, t.Header)
	for _, row := range t.Rows {
		writeRow(d, row)
	}
	_, _ = d.WriteString(groupSep)
}

func writeRow(d *xxhash.Digest, row []string) {
	for _, cell := range row {
		_, _ = d.WriteString(cell)
		_, _ = d.WriteString(unitSep)
	}
	_, _ = d.WriteString(recordSep)
}
