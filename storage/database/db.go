package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/trezcool/chuo/core"
	"github.com/trezcool/chuo/storage/database/models"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB bundles the gorm handle used by repositories and an sqlx handle, over the same pool, used for reports.
type DB struct {
	Gorm    *gorm.DB
	X       *sqlx.DB
	Dialect string
}

func (db *DB) Close() error {
	return db.X.Close()
}

// Ping checks the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.X.PingContext(ctx)
}

// DSN returns the configured DSN, or builds a Postgres URL out of the discrete database settings.
func DSN(conf *core.Config) string {
	if dsn := strings.TrimSpace(conf.Database.DSN); dsn != "" {
		return dsn
	}
	return postgresURL(conf.Database.Name, false, conf)
}

func postgresURL(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Open connects to the configured database. SQL logs are written to w.
func Open(conf *core.Config, w gormlogger.Writer) (*DB, error) {
	return OpenDSN(DSN(conf), w)
}

// OpenDSN connects to the database located by dsn: Postgres URLs or keyword strings, SQLite paths otherwise.
func OpenDSN(dsn string, w gormlogger.Writer) (*DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("database: empty dsn")
	}
	dialect, err := detectDialect(dsn)
	if err != nil {
		return nil, err
	}

	gcfg := &gorm.Config{
		Logger: gormlogger.New(w, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	switch dialect {
	case DialectPostgres:
		return openPostgres(dsn, gcfg)
	default:
		return openSQLite(dsn, gcfg)
	}
}

func detectDialect(dsn string) (string, error) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://"):
		return DialectPostgres, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") || strings.Contains(lower, "sslmode="):
		return DialectPostgres, nil
	case strings.HasPrefix(lower, "file:"),
		strings.HasPrefix(lower, "sqlite://"),
		strings.HasPrefix(lower, "sqlite3://"),
		!strings.Contains(lower, "://"):
		return DialectSQLite, nil
	default:
		return "", errors.Errorf("database: unsupported dsn %q", dsn)
	}
}

func openPostgres(dsn string, gcfg *gorm.Config) (*DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gcfg)
	if err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "opening gorm")
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{Gorm: gdb, X: sqlx.NewDb(sqlDB, "postgres"), Dialect: DialectPostgres}, nil
}

// openSQLite opens a single-connection pool: SQLite serializes writers anyway, and an in-memory
// database only lives as long as its connection.
func openSQLite(dsn string, gcfg *gorm.Config) (*DB, error) {
	dsn = ensureSQLitePragmas(normalizeSQLiteDSN(dsn))
	if err := ensureSQLiteDir(dsn); err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite")
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite")
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, errors.Wrap(err, "pinging sqlite")
	}
	return &DB{Gorm: gdb, X: sqlx.NewDb(sqlDB, "sqlite"), Dialect: DialectSQLite}, nil
}

func normalizeSQLiteDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "sqlite3://") || strings.HasPrefix(lower, "sqlite://") {
		if parts := strings.SplitN(dsn, "://", 2); len(parts) == 2 {
			return "file:" + parts[1]
		}
	}
	return dsn
}

func ensureSQLitePragmas(dsn string) string {
	if strings.Contains(strings.ToLower(dsn), "_pragma=") {
		return dsn
	}
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + pragmas
	}
	return dsn + "?" + pragmas
}

func sqlitePath(dsn string) string {
	if strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = strings.TrimPrefix(dsn[len("file:"):], "//")
	}
	if idx := strings.Index(dsn, "?"); idx >= 0 {
		dsn = dsn[:idx]
	}
	if dsn == "" || dsn == ":memory:" {
		return ""
	}
	return dsn
}

func ensureSQLiteDir(dsn string) error {
	path := sqlitePath(dsn)
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "creating sqlite dir")
		}
	}
	return nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(db *sql.DB, query, arg string) (bool, error) {
	var found bool
	rows, err := db.Query(query, arg)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&found); err != nil {
			return false, err
		}
	}
	return found, rows.Err()
}

func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(db, "SELECT true FROM pg_roles WHERE rolname=$1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User), pq.QuoteLiteral(conf.Database.Password))
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sql.DB, conf *core.Config) error {
	found, err := exists(db, "SELECT true FROM pg_database WHERE datname=$1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.Exec("CREATE DATABASE " + pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the Postgres app user and database. SQLite databases need no setup.
func CreateIfNotExist(conf *core.Config) error {
	if dialect, err := detectDialect(DSN(conf)); err != nil || dialect != DialectPostgres {
		return err
	}

	// connect as admin
	db, err := sql.Open("postgres", postgresURL("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return err
	}

	// create DB as app user
	appDB, err := sql.Open("postgres", postgresURL("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	return createDB(appDB, conf)
}

// GooseRunFunc runs a goose command; swapped for a stub in tests.
type GooseRunFunc func(command string, db *sql.DB, dir string, args ...string) error

// Migrate brings the schema up to date: goose migrations on Postgres, gorm AutoMigrate on SQLite.
func Migrate(db *DB) error {
	return RunMigrations(db, goose.Run, "up")
}

// RunMigrations runs a goose command (up, down, status, ...) against db.
// SQLite only supports "up", which auto-migrates the models.
func RunMigrations(db *DB, run GooseRunFunc, command string, args ...string) error {
	if db.Dialect == DialectSQLite {
		if command != "up" {
			return errors.Errorf("migrate %s: not supported on sqlite", command)
		}
		return errors.Wrap(db.Gorm.AutoMigrate(models.All()...), "migrating database")
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	if err := run(command, db.X.DB, "migrations", args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}

// IsUniqueViolation reports whether err comes from a violated unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, sql.ErrNoRows)
}
