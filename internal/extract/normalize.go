package extract

import (
	"bytes"
	"strings"
)

// NormalizeColumnName maps an API column name (lowercase, hyphenated) to the
// database convention (uppercase, underscored).
//
// The API misnames two columns relative to the published bulk schema:
// it serves ENVIRONMENTAL_IMPACT_* where the tables use
// ENVIRONMENT_IMPACT_*, so those are renamed explicitly.
func NormalizeColumnName(name string) string {
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	switch n {
	case "ENVIRONMENTAL_IMPACT_CURRENT":
		return "ENVIRONMENT_IMPACT_CURRENT"
	case "ENVIRONMENTAL_IMPACT_POTENTIAL":
		return "ENVIRONMENT_IMPACT_POTENTIAL"
	}
	return n
}

// NormalizeHeader rewrites the header row of a CSV page to database column
// names, leaving the data rows untouched.
func NormalizeHeader(page []byte) []byte {
	idx := bytes.IndexByte(page, '\n')
	if idx < 0 {
		return page
	}

	header := strings.TrimRight(string(page[:idx]), "\r")
	cols := strings.Split(header, ",")
	for i, col := range cols {
		cols[i] = NormalizeColumnName(strings.Trim(col, `"`))
	}

	var buf bytes.Buffer
	buf.Grow(len(page))
	buf.WriteString(strings.Join(cols, ","))
	buf.WriteByte('\n')
	buf.Write(page[idx+1:])
	return buf.Bytes()
}
