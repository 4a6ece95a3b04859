// Package landing manages source files on their way into the lake: bulk
// download and unpacking, schema generation from the register's column
// manifests, and conversion to Parquet.
package landing

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Column pairs a certificate column with its DuckDB type.
type Column struct {
	Name string
	Type string
}

// Schema is an ordered column list. Order follows the register's columns.csv
// manifest, which matches the column order of the bulk CSV files.
type Schema []Column

// duckdbType maps a manifest datatype to the DuckDB type used in the lake.
func duckdbType(datatype string) string {
	switch strings.ToLower(strings.TrimSpace(datatype)) {
	case "integer":
		return "BIGINT"
	case "date":
		return "DATE"
	case "decimal", "float":
		return "DOUBLE"
	case "datetime":
		return "TIMESTAMP"
	default:
		return "VARCHAR"
	}
}

// InferSchema reads a columns.csv manifest (as shipped inside the register's
// bulk zip files) and derives the lake schema. The manifest has a "column"
// and a "datatype" field per row.
func InferSchema(r io.Reader) (Schema, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading manifest header: %w", err)
	}

	colIdx, typeIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "column":
			colIdx = i
		case "datatype":
			typeIdx = i
		}
	}
	if colIdx < 0 || typeIdx < 0 {
		return nil, fmt.Errorf("manifest must have column and datatype fields, got %v", header)
	}

	var schema Schema
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading manifest row: %w", err)
		}
		schema = append(schema, Column{
			Name: record[colIdx],
			Type: duckdbType(record[typeIdx]),
		})
	}
	if len(schema) == 0 {
		return nil, fmt.Errorf("manifest contains no columns")
	}
	return schema, nil
}

// LoadSchema reads a schema JSON file, preserving column order.
func LoadSchema(path string) (Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening schema file: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("schema file %s must hold a JSON object", path)
	}

	var schema Schema
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, _ := keyTok.(string)

		var typ string
		if err := dec.Decode(&typ); err != nil {
			return nil, fmt.Errorf("schema value for %s: %w", name, err)
		}
		schema = append(schema, Column{Name: name, Type: typ})
	}
	return schema, nil
}

// Save writes the schema as a JSON object, keeping column order.
func (s Schema) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating schema file: %w", err)
	}
	defer f.Close()

	if err := s.writeJSON(f); err != nil {
		return err
	}
	return f.Close()
}

func (s Schema) writeJSON(w io.Writer) error {
	var b strings.Builder
	b.WriteString("{\n")
	for i, col := range s {
		name, err := json.Marshal(col.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "  %s: %q", name, col.Type)
		if i < len(s)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// TypeLiteral renders the schema as a DuckDB struct literal for the types
// parameter of read_csv. Keys are sorted so generated SQL is stable.
func (s Schema) TypeLiteral() string {
	sorted := make(Schema, len(s))
	copy(sorted, s)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	parts := make([]string, len(sorted))
	for i, col := range sorted {
		parts[i] = fmt.Sprintf("'%s': '%s'", strings.ReplaceAll(col.Name, "'", "''"), col.Type)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
