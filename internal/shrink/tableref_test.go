package shrink

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseTableRef(t *testing.T) {
	var tests = []struct {
		in       string
		want     TableRef
		errIsNil bool
	}{
		{"app.orders", TableRef{"app", "orders"}, true},
		{"mysql.innodb_table_stats", TableRef{"mysql", "innodb_table_stats"}, true},
		// the table part keeps any further dots
		{"app.orders.v2", TableRef{"app", "orders.v2"}, true},
		{"orders", TableRef{}, false},
		{".orders", TableRef{}, false},
		{"app.", TableRef{}, false},
		{"", TableRef{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTableRef(tt.in)
			if (err == nil) != tt.errIsNil {
				if tt.errIsNil {
					t.Fatalf("\ngot unexpected error: \"%v\"", err)
				} else {
					t.Fatalf("\nexpected an error, did not receive one")
				}
			}
			if got != tt.want {
				t.Errorf("\ngot %+v, wanted %+v", got, tt.want)
			}
		})
	}
}

func TestTableListRoundTrip(t *testing.T) {
	tables := []TableRef{
		{"mysql", "innodb_table_stats"},
		{"app", "orders"},
		{"app", "users"},
		{"billing", "invoices"},
	}
	path := filepath.Join(t.TempDir(), "inno_list_apps")

	if err := writeTableList(path, tables); err != nil {
		t.Fatalf("writeTableList: %v", err)
	}
	got, err := readTableList(path)
	if err != nil {
		t.Fatalf("readTableList: %v", err)
	}

	if len(got) != len(tables) {
		t.Fatalf("\ngot %d tables, wanted %d", len(got), len(tables))
	}
	for i := range got {
		if got[i] != tables[i] {
			t.Errorf("\nentry %d: got %v, wanted %v", i, got[i], tables[i])
		}
	}
}

func TestReadTableListMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inno_list_apps")
	if err := os.WriteFile(path, []byte("app.orders\nnot-a-qualified-name\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readTableList(path); err == nil {
		t.Fatal("expected an error for an unqualified table name")
	}
}
