package shrink

import (
	"fmt"
	"strings"

	"ibdshrink/internal/fsutil"
)

// Table list files written by Inspect under the workdir. They are the only
// record of what must be restored while the tables are dropped, so stage 2
// replays them verbatim and in order.
const (
	listSystemFile = "inno_list_mysql"
	listAppsFile   = "inno_list_apps"
)

// TableRef identifies a table as a (schema, table) pair, serialized as
// "schema.table".
type TableRef struct {
	Schema string
	Name   string
}

func (t TableRef) String() string {
	return t.Schema + "." + t.Name
}

// ParseTableRef splits "schema.table". The table part may itself contain
// dots, the schema part may not.
func ParseTableRef(s string) (TableRef, error) {
	schema, name, ok := strings.Cut(s, ".")
	if !ok || schema == "" || name == "" {
		return TableRef{}, fmt.Errorf("malformed table reference %q, want schema.table", s)
	}
	return TableRef{Schema: schema, Name: name}, nil
}

func writeTableList(path string, tables []TableRef) error {
	lines := make([]string, len(tables))
	for i, t := range tables {
		lines[i] = t.String()
	}
	return fsutil.WriteLines(path, lines)
}

func readTableList(path string) ([]TableRef, error) {
	lines, err := fsutil.ReadLines(path)
	if err != nil {
		return nil, err
	}
	tables := make([]TableRef, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		t, err := ParseTableRef(line)
		if err != nil {
			return nil, fmt.Errorf("table list %s: %w", path, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}
