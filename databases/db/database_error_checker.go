package db

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/sijms/go-ora/v2/network"
)

// Classes of driver errors, matched with errors.Is on the result of CheckDatabaseError.
var (
	ERROR_DB_DUPLICATE_KEY = stderrors.New("ERROR_DB_DUPLICATE_KEY")
	ERROR_DB_NOT_CONNECTED = stderrors.New("ERROR_DB_NOT_CONNECTED")
)

// CheckDatabaseError wraps a driver error as a backend failure, tagging
// duplicate key and connection errors. It returns nil for nil.
func CheckDatabaseError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.KindOf(err) != nil {
		return errors.WithMessagef(err, format, args...)
	}

	switch {
	case isConnectionError(err):
		err = fmt.Errorf("%w: %w", ERROR_DB_NOT_CONNECTED, err)
	case IsDuplicateKeyError(err):
		err = fmt.Errorf("%w: %w", ERROR_DB_DUPLICATE_KEY, err)
	}
	return errors.BackendFailuref(err, format, args...)
}

// IsDuplicateKeyError detects duplicate key violations across different database systems
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}

	// PostgreSQL
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // Unique violation
	}

	// MySQL/MariaDB
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062 // Duplicate entry
	}

	// SQL Server
	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) {
		return mssqlErr.Number == 2627 || mssqlErr.Number == 2601 // Unique constraint/index violation
	}

	// Oracle
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return oraErr.ErrCode == 1 // ORA-00001
	}

	// SQLite
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "Duplicate entry") ||
		strings.Contains(errMsg, "Violation of UNIQUE KEY constraint") ||
		strings.Contains(errMsg, "ORA-00001") ||
		strings.Contains(errMsg, "UNIQUE constraint failed")
}

// isConnectionError detects database connection issues across different database systems
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// PostgreSQL
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 08 - Connection Exception
		return strings.HasPrefix(string(pqErr.Code), "08")
	}

	// MySQL/MariaDB connection errors
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		connectionErrors := map[uint16]bool{
			1040: true, 1042: true, 1043: true, 1047: true, 1053: true,
			1077: true, 1129: true, 1130: true, 2002: true, 2003: true,
			2005: true, 2006: true, 2013: true,
		}
		return connectionErrors[mysqlErr.Number]
	}

	// SQL Server connection errors
	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) {
		connectionErrors := map[int32]bool{
			53: true, 10053: true, 10054: true, 10060: true,
			10061: true, 233: true, -2: true,
		}
		return connectionErrors[mssqlErr.Number]
	}

	// Oracle
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		switch oraErr.ErrCode {
		case 3113, 3114, 3135, 12541, 12170, 12224:
			return true
		}
		return false
	}

	// SQLite
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrCantOpen || sqliteErr.Code == sqlite3.ErrNotADB
	}

	errMsg := strings.ToLower(err.Error())
	connectionPhrases := []string{
		"connection refused", "connection reset", "connection timed out",
		"connection closed", "connection lost", "broken pipe",
		"no connection", "cannot connect", "network error",
		"server has gone away", "lost connection", "server closed", "driver closed",
	}
	for _, phrase := range connectionPhrases {
		if strings.Contains(errMsg, phrase) {
			return true
		}
	}
	return false
}

// IsConnectionError reports whether err was classified as a lost or refused connection.
func IsConnectionError(err error) bool {
	return errors.Is(err, ERROR_DB_NOT_CONNECTED) || isConnectionError(err)
}
