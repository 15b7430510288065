package databases

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	namedParameterQuery "github.com/knetic/go-namedparameterquery"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/microsoft/go-mssqldb"
	goOra "github.com/sijms/go-ora/v2"

	"github.com/ahoy-jon/SQLContainer-sub000/base"
	"github.com/ahoy-jon/SQLContainer-sub000/configuration"
	"github.com/ahoy-jon/SQLContainer-sub000/databases/db"
	"github.com/ahoy-jon/SQLContainer-sub000/errors"
	"github.com/ahoy-jon/SQLContainer-sub000/log"
	"github.com/ahoy-jon/SQLContainer-sub000/utils"
)

func init() {
	// go-ora binds :name placeholders; statements are written with ? and rebound.
	sqlx.BindDriver("oracle", sqlx.NAMED)
}

// ConnectionPool hands out connections for the duration of one backend call.
// Every Reserve must be paired with a Release on all exit paths.
type ConnectionPool interface {
	Reserve(ctx context.Context) (*sqlx.Conn, error)
	Release(conn *sqlx.Conn)
}

type DXDatabaseEventFunc func(dm *DXDatabase, err error)

type DXDatabase struct {
	NameId                       string
	DatabaseType                 base.DXDatabaseType
	Address                      string
	UserName                     string
	UserPassword                 string
	DatabaseName                 string
	ConnectionOptions            string
	MaxOpenConnections           int
	MustConnected                bool
	Connected                    bool
	Connection                   *sqlx.DB
	ConnectionString             string
	NonSensitiveConnectionString string
	OnCannotConnect              DXDatabaseEventFunc
	reserved                     atomic.Int64
}

var _ ConnectionPool = (*DXDatabase)(nil)

func NewDXDatabaseFromConfiguration(c *configuration.DatabaseConfiguration) (d *DXDatabase, err error) {
	if c == nil {
		return nil, errors.Validationf("DATABASE_CONFIGURATION_IS_NULL")
	}
	d = &DXDatabase{
		NameId:             c.NameId,
		DatabaseType:       base.StringToDXDatabaseType(c.DatabaseType),
		Address:            c.Address,
		UserName:           c.UserName,
		UserPassword:       c.UserPassword,
		DatabaseName:       c.DatabaseName,
		ConnectionOptions:  c.ConnectionOptions,
		MaxOpenConnections: c.MaxOpenConnections,
		MustConnected:      c.MustConnected,
	}
	if d.DatabaseType == base.UnknownDatabaseType {
		return nil, errors.Validationf("DATABASE_TYPE_NOT_SUPPORTED:%s:%s", c.NameId, c.DatabaseType)
	}
	d.NonSensitiveConnectionString = d.GetNonSensitiveConnectionString()
	d.ConnectionString, err = d.GetConnectionString()
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewSQLiteMemoryDatabase is a private in-memory SQLite database. It is limited
// to one open connection, since every SQLite connection to :memory: sees its
// own empty database.
func NewSQLiteMemoryDatabase(nameId string) (*DXDatabase, error) {
	return NewDXDatabaseFromConfiguration(&configuration.DatabaseConfiguration{
		NameId:       nameId,
		DatabaseType: base.DXDatabaseTypeSQLite.String(),
		DatabaseName: ":memory:",
	})
}

func (d *DXDatabase) GetDatabaseType() base.DXDatabaseType {
	return d.DatabaseType
}

func (d *DXDatabase) isSQLiteMemory() bool {
	return d.DatabaseType == base.DXDatabaseTypeSQLite && (d.DatabaseName == "" || d.DatabaseName == ":memory:")
}

func (d *DXDatabase) GetNonSensitiveConnectionString() string {
	if d.DatabaseType == base.DXDatabaseTypeSQLite {
		return fmt.Sprintf("%s://%s", d.DatabaseType.String(), d.DatabaseName)
	}
	return fmt.Sprintf("%s://%s/%s", d.DatabaseType.String(), d.Address, d.DatabaseName)
}

func (d *DXDatabase) GetConnectionString() (s string, err error) {
	switch d.DatabaseType {
	case base.DXDatabaseTypePostgreSQL:
		host, portAsString, err := net.SplitHostPort(d.Address)
		if err != nil {
			return "", errors.Wrapf(err, "INVALID_DATABASE_ADDRESS:%s:%s", d.NameId, d.Address)
		}
		s = strings.TrimSpace(fmt.Sprintf("user=%s password=%s host=%s port=%s dbname=%s %s", d.UserName, d.UserPassword, host, portAsString, d.DatabaseName, d.ConnectionOptions))

	case base.DXDatabaseTypeMariaDB:
		cfg := mysql.NewConfig()
		cfg.User = d.UserName
		cfg.Passwd = d.UserPassword
		cfg.Net = "tcp"
		cfg.Addr = d.Address
		cfg.DBName = d.DatabaseName
		cfg.ParseTime = true
		if d.ConnectionOptions != "" {
			cfg.Params = map[string]string{}
			for _, option := range strings.Split(d.ConnectionOptions, "&") {
				k, v, _ := strings.Cut(option, "=")
				if k != "" {
					cfg.Params[k] = v
				}
			}
		}
		s = cfg.FormatDSN()

	case base.DXDatabaseTypeSQLServer:
		host, portAsString, err := net.SplitHostPort(d.Address)
		if err != nil {
			return "", errors.Wrapf(err, "INVALID_DATABASE_ADDRESS:%s:%s", d.NameId, d.Address)
		}
		s = fmt.Sprintf("server=%s;port=%s;user id=%s;password=%s;database=%s;encrypt=disable", host, portAsString, d.UserName, d.UserPassword, d.DatabaseName)

	case base.DXDatabaseTypeOracle:
		host, portAsString, err := net.SplitHostPort(d.Address)
		if err != nil {
			return "", errors.Wrapf(err, "INVALID_DATABASE_ADDRESS:%s:%s", d.NameId, d.Address)
		}
		portInt, err := strconv.Atoi(portAsString)
		if err != nil {
			return "", errors.Wrapf(err, "INVALID_DATABASE_PORT:%s:%s", d.NameId, portAsString)
		}
		urlOptions := map[string]string{}
		s = goOra.BuildUrl(host, portInt, d.DatabaseName, d.UserName, d.UserPassword, urlOptions)

	case base.DXDatabaseTypeSQLite:
		s = d.DatabaseName
		if s == "" {
			s = ":memory:"
		}
		if d.ConnectionOptions != "" {
			s = s + "?" + d.ConnectionOptions
		}

	default:
		err = log.Log.ErrorAndCreateErrorf("configuration is unusable, value of database_type field of database %s configuration is not supported (%s)", d.NameId, d.DatabaseType.String())
	}
	return s, err
}

func (d *DXDatabase) Connect() (err error) {
	if d.Connected {
		return nil
	}
	log.Log.Infof("Connecting to database %s/%s... start", d.NameId, d.NonSensitiveConnectionString)
	connection, err := sqlx.Open(d.DatabaseType.Driver(), d.ConnectionString)
	if err != nil {
		log.Log.Errorf(err, "Invalid parameters to open database %s/%s", d.NameId, d.NonSensitiveConnectionString)
		return db.CheckDatabaseError(err, "DB_OPEN_ERROR:%s", d.NameId)
	}
	switch {
	case d.isSQLiteMemory():
		connection.SetMaxOpenConns(1)
		connection.SetMaxIdleConns(1)
		connection.SetConnMaxLifetime(0)
		connection.SetConnMaxIdleTime(0)
	case d.MaxOpenConnections > 0:
		connection.SetMaxOpenConns(d.MaxOpenConnections)
	}
	err = connection.Ping()
	if err != nil {
		_ = connection.Close()
		if d.OnCannotConnect != nil {
			d.OnCannotConnect(d, err)
		}
		if d.MustConnected {
			log.Log.Fatalf("Cannot connect and ping to database %s/%s (%s)", d.NameId, d.NonSensitiveConnectionString, err.Error())
		}
		log.Log.Errorf(err, "Cannot connect and ping to database %s/%s", d.NameId, d.NonSensitiveConnectionString)
		return db.CheckDatabaseError(err, "DB_PING_ERROR:%s", d.NameId)
	}
	d.Connection = connection
	d.Connected = true
	log.Log.Infof("Connecting to database %s/%s... done CONNECTED", d.NameId, d.NonSensitiveConnectionString)
	return nil
}

func (d *DXDatabase) Disconnect() (err error) {
	if !d.Connected {
		return nil
	}
	log.Log.Infof("Disconnecting to database %s/%s... start", d.NameId, d.NonSensitiveConnectionString)
	if n := d.reserved.Load(); n > 0 {
		log.Log.Warnf("Disconnecting database %s with %d reserved connections", d.NameId, n)
	}
	err = d.Connection.Close()
	if err != nil {
		log.Log.Errorf(err, "Disconnecting to database %s/%s error", d.NameId, d.NonSensitiveConnectionString)
		return db.CheckDatabaseError(err, "DB_CLOSE_ERROR:%s", d.NameId)
	}
	d.Connection = nil
	d.Connected = false
	log.Log.Infof("Disconnecting to database %s/%s... done DISCONNECTED", d.NameId, d.NonSensitiveConnectionString)
	return nil
}

func (d *DXDatabase) CheckConnection(ctx context.Context) (err error) {
	if d.Connection == nil {
		d.Connected = false
		return errors.WithStack(db.ERROR_DB_NOT_CONNECTED)
	}
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()
	if err = d.Connection.PingContext(ctx); err != nil {
		d.Connected = false
		log.Log.Warnf("Database %v ping failed: %v", d.NameId, err.Error())
		return db.CheckDatabaseError(err, "DB_PING_ERROR:%s", d.NameId)
	}
	d.Connected = true
	return nil
}

// Reserve takes a dedicated connection from the pool, connecting on first use.
func (d *DXDatabase) Reserve(ctx context.Context) (*sqlx.Conn, error) {
	if err := d.Connect(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	conn, err := d.Connection.Connx(ctx)
	if err != nil {
		return nil, db.CheckDatabaseError(err, "DB_RESERVE_CONNECTION_ERROR:%s", d.NameId)
	}
	d.reserved.Add(1)
	return conn, nil
}

// Release returns a connection taken with Reserve. A nil conn is ignored.
func (d *DXDatabase) Release(conn *sqlx.Conn) {
	if conn == nil {
		return
	}
	d.reserved.Add(-1)
	if err := conn.Close(); err != nil {
		log.Log.Errorf(err, "Releasing connection of database %s", d.NameId)
	}
}

// Reserved is the number of connections currently reserved and not released.
func (d *DXDatabase) Reserved() int64 {
	return d.reserved.Load()
}

// Execute runs a statement with :name parameters outside of any container,
// typically DDL or seed data.
func (d *DXDatabase) Execute(ctx context.Context, statement string, parameters utils.JSON) (rowsAffected int64, err error) {
	conn, err := d.Reserve(ctx)
	if err != nil {
		return 0, err
	}
	defer d.Release(conn)

	query := namedParameterQuery.NewNamedParameterQuery(statement)
	query.SetValuesFromMap(parameters)
	s := conn.Rebind(query.GetParsedQuery())
	p := query.GetParsedParameters()

	l := log.NewLog(&log.Log, ctx, d.NameId)
	r, err := conn.ExecContext(l.Context, s, p...)
	db.LogDBOperation(&l, "EXECUTE", s, p, err)
	if err != nil {
		return 0, db.CheckDatabaseError(err, "DB_EXECUTE_ERROR:%s", d.NameId)
	}
	rowsAffected, err = r.RowsAffected()
	if err != nil {
		return 0, db.CheckDatabaseError(err, "DB_ROWS_AFFECTED_ERROR:%s", d.NameId)
	}
	return rowsAffected, nil
}
