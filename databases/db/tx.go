package db

import (
	"database/sql"

	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	"github.com/jmoiron/sqlx"
)

type TxCallback func(tx *sqlx.Tx, log *log.DXLog) (err error)

// Begin opens a transaction on a reserved connection.
func Begin(l *log.DXLog, conn *sqlx.Conn, isolationLevel sql.IsolationLevel) (*sqlx.Tx, error) {
	tx, err := conn.BeginTxx(logContext(l), &sql.TxOptions{
		Isolation: isolationLevel,
		ReadOnly:  false,
	})
	if err != nil {
		return nil, CheckDatabaseError(err, "DB_TX_BEGIN_ERROR")
	}
	return tx, nil
}

// Rollback rolls tx back, logging instead of returning a rollback failure so the
// error that caused it is what reaches the caller.
func Rollback(l *log.DXLog, tx *sqlx.Tx) {
	if tx == nil {
		return
	}
	if errTx := tx.Rollback(); errTx != nil && !errors.Is(errTx, sql.ErrTxDone) {
		logOrDefault(l).Errorf(errTx, "ErrorInRollback")
	}
}

// Tx runs callback inside one transaction on conn: commit on success, rollback
// on a callback or commit error.
func Tx(l *log.DXLog, conn *sqlx.Conn, isolationLevel sql.IsolationLevel, callback TxCallback) (err error) {
	l = logOrDefault(l)
	tx, err := Begin(l, conn, isolationLevel)
	if err != nil {
		l.Error(err, "ErrorInBegin")
		return err
	}
	err = callback(tx, l)
	if err != nil {
		l.Errorf(err, "ErrorInCallback")
		Rollback(l, tx)
		return err
	}
	err = tx.Commit()
	if err != nil {
		l.Errorf(err, "ErrorInCommit")
		Rollback(l, tx)
		return CheckDatabaseError(err, "DB_TX_COMMIT_ERROR")
	}
	return nil
}
