package shrink

import "strings"

// All statement text is built here. Table names come from the server's own
// catalog or from the operator's workdir files, not external input, but
// keeping construction in one place leaves a single point to harden.

const (
	qryDatadir      = "show global variables like 'datadir'"
	qryFilePerTable = "show global variables like 'innodb_file_per_table'"

	qrySystemTables = "select table_schema,table_name from information_schema.tables" +
		" where table_schema in ('mysql','sys') and engine = 'innodb'"
	qryAppTables = "select table_schema,table_name from information_schema.tables" +
		" where table_schema not in ('mysql','information_schema','sys') and engine = 'innodb'"

	stmtDisableFKChecks = "set foreign_key_checks=0"
	stmtUnlockTables    = "unlock tables"
)

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteTable(t TableRef) string {
	return quoteIdent(t.Schema) + "." + quoteIdent(t.Name)
}

func stmtAlterEngine(t TableRef, engine string) string {
	return "alter table " + quoteTable(t) + " engine=" + engine
}

func qryShowCreate(t TableRef) string {
	return "show create table " + quoteTable(t)
}

// stmtFlushForExport covers the full table list in one statement so all
// tables share a single consistent lock point.
func stmtFlushForExport(tables []TableRef) string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = quoteTable(t)
	}
	return "flush tables " + strings.Join(names, ", ") + " for export"
}

func stmtDropTable(t TableRef) string {
	return "drop table " + quoteTable(t)
}

func stmtUseSchema(schema string) string {
	return "use " + quoteIdent(schema)
}

func stmtDiscardTablespace(t TableRef) string {
	return "alter table " + quoteTable(t) + " discard tablespace"
}

func stmtImportTablespace(t TableRef) string {
	return "alter table " + quoteTable(t) + " import tablespace"
}
