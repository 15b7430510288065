package query

import (
	"context"
	"database/sql"

	"github.com/ahoy-jon/SQLContainer-sub000/databases"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	"github.com/jmoiron/sqlx"
)

type ExecutorFunc func(l *log.DXLog, ex db.Executor) error

// transaction is the Idle/Active state shared by the backends. While Active it
// holds one reserved connection until Commit or Rollback releases it.
type transaction struct {
	pool databases.ConnectionPool
	log  log.DXLog
	conn *sqlx.Conn
	tx   *sqlx.Tx
}

func newTransaction(pool databases.ConnectionPool, prefix string) transaction {
	return transaction{pool: pool, log: log.NewLog(&log.Log, nil, prefix)}
}

func (t *transaction) logFor(ctx context.Context) *log.DXLog {
	l := t.log
	if ctx != nil {
		l.Context = ctx
	}
	return &l
}

func (t *transaction) IsActive() bool {
	return t.tx != nil
}

func (t *transaction) begin(ctx context.Context) error {
	if t.tx != nil {
		return errors.Preconditionf("TRANSACTION_ALREADY_ACTIVE")
	}
	conn, err := t.pool.Reserve(ctx)
	if err != nil {
		return err
	}
	l := t.logFor(ctx)
	tx, err := db.Begin(l, conn, sql.LevelDefault)
	if err != nil {
		t.pool.Release(conn)
		return err
	}
	t.conn, t.tx = conn, tx
	l.Debugf("TRANSACTION_BEGIN")
	return nil
}

// end leaves the Active state and releases the connection whatever finish returns.
func (t *transaction) end(ctx context.Context, name string, finish func(tx *sqlx.Tx) error) error {
	if t.tx == nil {
		return errors.Preconditionf("NO_ACTIVE_TRANSACTION:%s", name)
	}
	conn, tx := t.conn, t.tx
	t.conn, t.tx = nil, nil
	defer t.pool.Release(conn)

	l := t.logFor(ctx)
	if err := finish(tx); err != nil {
		return db.CheckDatabaseError(err, "DB_TX_%s_ERROR", name)
	}
	l.Debugf("TRANSACTION_%s", name)
	return nil
}

func (t *transaction) commit(ctx context.Context) error {
	return t.end(ctx, "COMMIT", func(tx *sqlx.Tx) error {
		err := tx.Commit()
		if err != nil {
			db.Rollback(t.logFor(ctx), tx)
		}
		return err
	})
}

func (t *transaction) rollback(ctx context.Context) error {
	return t.end(ctx, "ROLLBACK", func(tx *sqlx.Tx) error {
		return tx.Rollback()
	})
}

// run calls fn inside the active transaction, or inside a transaction of its
// own on a freshly reserved connection when Idle.
func (t *transaction) run(ctx context.Context, fn ExecutorFunc) error {
	l := t.logFor(ctx)
	if t.tx != nil {
		return fn(l, t.tx)
	}
	conn, err := t.pool.Reserve(ctx)
	if err != nil {
		return err
	}
	defer t.pool.Release(conn)
	return db.Tx(l, conn, sql.LevelDefault, func(tx *sqlx.Tx, l *log.DXLog) error {
		return fn(l, tx)
	})
}
