package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const connectTimeout = 10 * time.Second

// DatabaseError wraps any failed statement. There is no retry: a failed
// statement aborts the current stage.
type DatabaseError struct {
	Stmt string
	Err  error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("a DB error occurred: %v", e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// ExitCode is the process exit code for fatal database errors.
func (e *DatabaseError) ExitCode() int { return 10 }

// Session is a scoped database connection. All statements run on one pinned
// connection, so session state (locks held by FLUSH ... FOR EXPORT, the
// selected schema, foreign_key_checks) stays valid across calls. A session
// is opened at the start of one stage and closed when the stage ends, never
// shared or reused across stages.
type Session struct {
	db   *sql.DB
	conn *sql.Conn
}

// DSN builds a go-sql-driver DSN for a local unix socket connection with
// optional credentials.
func DSN(socket, user, password string) string {
	cred := ""
	if user != "" {
		cred = user
		if password != "" {
			cred += ":" + password
		}
		cred += "@"
	}
	return fmt.Sprintf("%sunix(%s)/", cred, socket)
}

// Open connects to the MySQL server listening on socket.
func Open(ctx context.Context, socket, user, password string) (*Session, error) {
	sqldb, err := sql.Open("mysql", DSN(socket, user, password))
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	s, err := NewSession(ctx, sqldb)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	return s, nil
}

// NewSession pins a single connection off db and verifies it with a ping.
func NewSession(ctx context.Context, sqldb *sql.DB) (*Session, error) {
	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	conn, err := sqldb.Conn(pingCtx)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, &DatabaseError{Err: fmt.Errorf("mysql ping failed: %w", err)}
	}
	return &Session{db: sqldb, conn: conn}, nil
}

// Close releases the pinned connection and the underlying pool.
func (s *Session) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return s.db.Close()
}

// Query runs a statement that returns rows and scans every column as text,
// the shape all catalog and SHOW queries here need.
func (s *Session) Query(ctx context.Context, query string) ([][]string, error) {
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, &DatabaseError{Stmt: query, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &DatabaseError{Stmt: query, Err: err}
	}

	var out [][]string
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &DatabaseError{Stmt: query, Err: fmt.Errorf("scan row: %w", err)}
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = v.String
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &DatabaseError{Stmt: query, Err: err}
	}
	return out, nil
}

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, query string) error {
	if _, err := s.conn.ExecContext(ctx, query); err != nil {
		return &DatabaseError{Stmt: query, Err: err}
	}
	return nil
}
