// Package dbsession implements DbSession: one connection, metadata
// discovery, a cached read/write prepared-statement pair, transaction
// control and the unified apply() error-capture wrapper.
package dbsession

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"dbsync/internal/keytable"
	"dbsync/internal/rowbatch"
	"dbsync/internal/value"
)

// DbSession owns exactly one connection. Unlike a raw *sql.Conn pinning
// (needed elsewhere for FLUSH TABLES WITH READ LOCK / START TRANSACTION
// WITH CONSISTENT SNAPSHOT bookkeeping across several goroutines), this
// repo has no snapshot-isolation feature between source and target, so a
// *sql.DB capped at one open connection gives the same "one live
// connection" guarantee with less machinery.
type DbSession struct {
	db *sql.DB

	host, user, pass, schema string
	port                     int

	readStmt     *sql.Stmt
	readKind     string // "select" or "compare", plus the bulk size baked into readStmt
	readBulk     int
	writeStmt    *sql.Stmt
	writeKind    string // "insert", "update" or "delete"
	tx           *sql.Tx
	lastError    error
}

func New() *DbSession { return &DbSession{} }

// apply wraps every driver call: on error, lastError is set (distinguishing
// a vendor error with a numeric code from a generic one), description is
// folded into the returned error for logging; on success lastError is
// cleared. finally, when non-nil, always runs.
func (s *DbSession) apply(description string, action func() error, finally func()) error {
	err := action()
	if finally != nil {
		finally()
	}
	if err != nil {
		s.lastError = classifyError(err)
		return fmt.Errorf("%s: %w", description, s.lastError)
	}
	s.lastError = nil
	return nil
}

func classifyError(err error) error {
	if me, ok := err.(*mysql.MySQLError); ok {
		return &VendorError{Code: int(me.Number), Msg: me.Message}
	}
	return &GenericDBError{Msg: err.Error()}
}

// LastError returns the most recently captured error, or nil.
func (s *DbSession) LastError() error { return s.lastError }

// Open establishes the connection.
func (s *DbSession) Open(ctx context.Context, host string, port int, schema, user, password string) error {
	s.host, s.port, s.schema, s.user, s.pass = host, port, schema, user, password
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&interpolateParams=false",
		user, password, host, port, schema)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return &ConnectError{Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		return &ConnectError{Err: err}
	}
	s.db = db
	return nil
}

func (s *DbSession) Close() error {
	s.readStmt, s.writeStmt = nil, nil
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Exec runs a session-scoped statement with no result rows (the
// Coordinator's pre/post-execute SETs).
func (s *DbSession) Exec(ctx context.Context, query string) error {
	return s.apply("exec "+query, func() error {
		_, err := s.db.ExecContext(ctx, query)
		return err
	}, nil)
}

// ApplySessionSetup issues the UNIQUE_CHECKS/FOREIGN_KEY_CHECKS/SQL_LOG_BIN
// SETs on this connection. These are session-scoped MySQL variables, so
// every connection that will perform writes must run this itself after
// Open — it is not inherited from any other session. The Coordinator
// calls this once on its bootstrap target session for symmetry with
// PostExecute, and every worker's target session calls it once right
// after Open, before the connection starts processing tables.
func (s *DbSession) ApplySessionSetup(ctx context.Context, disableBinLog bool) error {
	stmts := []string{
		"SET @OLD_UNIQUE_CHECKS=@@UNIQUE_CHECKS, UNIQUE_CHECKS=0",
		"SET @OLD_FOREIGN_KEY_CHECKS=@@FOREIGN_KEY_CHECKS, FOREIGN_KEY_CHECKS=0",
	}
	if disableBinLog {
		stmts = append(stmts, "SET SESSION SQL_LOG_BIN=0")
	}
	for _, stmt := range stmts {
		if err := s.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *DbSession) TransactionBegin(ctx context.Context) error {
	return s.apply("transactionBegin", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		s.tx = tx
		return nil
	}, nil)
}

func (s *DbSession) TransactionCommit() error {
	return s.apply("transactionCommit", func() error {
		if s.tx == nil {
			return nil
		}
		err := s.tx.Commit()
		s.tx = nil
		return err
	}, nil)
}

// execer abstracts over *sql.DB and the open *sql.Tx so write statements
// bound during a transaction run against it, and run directly otherwise.
func (s *DbSession) queryer() interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
} {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// ---- key projection load (loadPk) ----

// LoadPk issues the key-projection query (plus the MD5 fingerprint column
// when target.HasFingerprint()), LIMIT bulk OFFSET off, appending every
// row into target until a short page is returned. Ordering is not
// requested; the sort happens client-side via KeyTable.Sort.
func (s *DbSession) LoadPk(ctx context.Context, table TableMeta, target *keytable.KeyTable, bulk int) error {
	keyNames := table.KeyColumnNames()
	query := buildLoadPkQuery(table, target.HasFingerprint())

	off := 0
	for {
		rows, err := s.queryer().QueryContext(ctx, query, bulk, off)
		if err != nil {
			return s.apply("loadPk", func() error { return err }, nil)
		}
		n, err := scanPkRows(rows, table, target, len(keyNames), target.HasFingerprint())
		rows.Close()
		if err != nil {
			return s.apply("loadPk", func() error { return err }, nil)
		}
		off += n
		if n < bulk {
			break
		}
	}
	s.lastError = nil
	return nil
}

func buildLoadPkQuery(table TableMeta, fingerprint bool) string {
	keyNames := table.KeyColumnNames()
	cols := make([]string, len(keyNames))
	for i, n := range keyNames {
		cols[i] = quoteIdent(n)
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	if fingerprint {
		b.WriteString(", ")
		b.WriteString(fingerprintExpr(table.NonKeyColumnNames()))
	}
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table.Name))
	b.WriteString(" LIMIT ? OFFSET ?")
	return b.String()
}

// fingerprintExpr builds MD5(CONCAT(COALESCE(col,'∅'), …)) AS `#MD5@CHECK#`.
// An empty non-key column set still yields a well-formed, constant
// fingerprint so the update phase is a no-op rather than a query error.
func fingerprintExpr(nonKeyNames []string) string {
	if len(nonKeyNames) == 0 {
		return "MD5('') AS `#MD5@CHECK#`"
	}
	parts := make([]string, len(nonKeyNames))
	for i, n := range nonKeyNames {
		parts[i] = fmt.Sprintf("COALESCE(%s,'%s')", quoteIdent(n), value.NullSentinel)
	}
	return "MD5(CONCAT(" + strings.Join(parts, ",") + ")) AS `#MD5@CHECK#`"
}

func scanPkRows(rows *sql.Rows, table TableMeta, target *keytable.KeyTable, keyCount int, fingerprint bool) (int, error) {
	keyTypes := table.KeyColumnTypes()
	keyNames := table.KeyColumnNames()
	n := 0
	for rows.Next() {
		dest := make([]interface{}, keyCount)
		if fingerprint {
			dest = make([]interface{}, keyCount+1)
		}
		ptrs := make([]interface{}, len(dest))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		row := make([]value.TypedValue, len(dest))
		for i := 0; i < keyCount; i++ {
			v, err := value.FromCell(keyNames[i], keyTypes[i], dest[i])
			if err != nil {
				return n, err
			}
			row[i] = v
		}
		if fingerprint {
			v, err := value.FromCell("#MD5@CHECK#", value.TString, dest[keyCount])
			if err != nil {
				return n, err
			}
			row[keyCount] = v
		}
		target.Append(row)
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	return n, nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ", ")
}

// ---- insert ----

func (s *DbSession) InsertPrepare(ctx context.Context, table TableMeta) error {
	cols := table.AllColumnNames()
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table.Name), strings.Join(quoted, ", "), placeholders(len(cols)))
	return s.prepareWrite(ctx, "insert", query)
}

func (s *DbSession) InsertExecute(ctx context.Context, row []value.TypedValue) error {
	args := make([]interface{}, len(row))
	for i, v := range row {
		args[i] = v.DriverArg()
	}
	return s.apply("insertExecute", func() error {
		_, err := s.writeStmt.ExecContext(ctx, args...)
		return err
	}, nil)
}

// ---- update ----

// UpdatePrepare builds UPDATE t SET non_key_0=?,… WHERE pk_0=? AND …,
// matching keyNames placeholder order so UpdateExecute's Rotate(row,k)
// lines up with the statement text.
func (s *DbSession) UpdatePrepare(ctx context.Context, table TableMeta, keyNames, allNames []string) error {
	nonKeyNames := make([]string, 0, len(allNames)-len(keyNames))
	keySet := make(map[string]bool, len(keyNames))
	for _, k := range keyNames {
		keySet[k] = true
	}
	for _, n := range allNames {
		if !keySet[n] {
			nonKeyNames = append(nonKeyNames, n)
		}
	}
	sets := make([]string, len(nonKeyNames))
	for i, n := range nonKeyNames {
		sets[i] = quoteIdent(n) + "=?"
	}
	wheres := make([]string, len(keyNames))
	for i, n := range keyNames {
		wheres[i] = quoteIdent(n) + "=?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		quoteIdent(table.Name), strings.Join(sets, ", "), strings.Join(wheres, " AND "))
	return s.prepareWrite(ctx, "update", query)
}

// UpdateExecute rotates row left by k = len(keyNames) so non-keys precede
// keys, then binds and executes.
func (s *DbSession) UpdateExecute(ctx context.Context, row []value.TypedValue, keyCount int) error {
	rotated := rowbatch.Rotate(row, keyCount)
	args := make([]interface{}, len(rotated))
	for i, v := range rotated {
		args[i] = v.DriverArg()
	}
	return s.apply("updateExecute", func() error {
		_, err := s.writeStmt.ExecContext(ctx, args...)
		return err
	}, nil)
}

// ---- delete ----

func (s *DbSession) DeletePrepare(ctx context.Context, table TableMeta, keyNames []string) error {
	wheres := make([]string, len(keyNames))
	for i, n := range keyNames {
		wheres[i] = quoteIdent(n) + "=?"
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", quoteIdent(table.Name), strings.Join(wheres, " AND "))
	return s.prepareWrite(ctx, "delete", query)
}

func (s *DbSession) DeleteExecute(ctx context.Context, kt *keytable.KeyTable, logicalIndex int) error {
	args := kt.Bind(logicalIndex)
	return s.apply("deleteExecute", func() error {
		_, err := s.writeStmt.ExecContext(ctx, args...)
		return err
	}, nil)
}

func (s *DbSession) prepareWrite(ctx context.Context, kind, query string) error {
	return s.apply("prepareWrite:"+kind, func() error {
		stmt, err := s.db.PrepareContext(ctx, query)
		if err != nil {
			return &PrepareError{Err: err}
		}
		if s.writeStmt != nil {
			s.writeStmt.Close()
		}
		s.writeStmt = stmt
		s.writeKind = kind
		return nil
	}, nil)
}

