// FILE: dest/database.go
package dest

import (
	"context"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/relaylog/relay"
)

func init() {
	Register("mysql", func(cfg *relay.Config) (relay.Facade, error) { return newDBFacade(cfg, "mysql") })
	Register("postgres", func(cfg *relay.Config) (relay.Facade, error) { return newDBFacade(cfg, "postgres") })
}

var dbDefaultLimits = relay.Limits{
	MaxRecords: 500,
	MaxBytes:   4 * 1024 * 1024,
}

// logRow is the table shape a database destination writes into.
type logRow struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Timestamp time.Time `gorm:"column:ts;index"`
	Message   string    `gorm:"column:message;type:text"`
}

// dbFacade delivers batches as bulk inserts into one table per
// destination. EnsureDestination migrates the table; SendBatch is a
// single CreateInBatches call so one batch stays one remote operation.
type dbFacade struct {
	cfg    relay.DestinationConfig
	driver string
	limits relay.Limits

	resolveOnce sync.Once
	table       string

	mu sync.Mutex
	db *gorm.DB
}

func newDBFacade(cfg *relay.Config, driver string) (relay.Facade, error) {
	d := cfg.Destination
	if strings.TrimSpace(d.DSN) == "" {
		return nil, relay.NewFacadeError("db.open", relay.ReasonInvalidConfiguration, false, nil,
			"%s destination requires a dsn", driver)
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, relay.NewFacadeError("db.open", relay.ReasonInvalidConfiguration, false, nil,
			"%s destination requires a table name", driver)
	}

	return &dbFacade{
		cfg:    d,
		driver: driver,
		limits: batchLimits(d, dbDefaultLimits),
	}, nil
}

// tableName resolves destination-name substitutions once, on first use.
func (f *dbFacade) tableName() string {
	f.resolveOnce.Do(func() {
		f.table = relay.ResolveSubstitutions(f.cfg.Name)
	})
	return f.table
}

func (f *dbFacade) EnsureDestination(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db == nil {
		var dialector gorm.Dialector
		switch f.driver {
		case "mysql":
			dialector = mysql.Open(f.cfg.DSN)
		default:
			dialector = postgres.Open(f.cfg.DSN)
		}

		gdb, err := gorm.Open(dialector, &gorm.Config{
			Logger: logger.Discard,
		})
		if err != nil {
			return classifyDBError("db.open", err)
		}
		f.db = gdb
	}

	err := f.db.WithContext(ctx).Table(f.tableName()).AutoMigrate(&logRow{})
	if err != nil {
		if isAlreadyExists(err) {
			// Migration raced another writer; the table is there
			return nil
		}
		return classifyDBError("db.ensure", err)
	}
	return nil
}

func (f *dbFacade) SendBatch(ctx context.Context, batch []relay.Record) error {
	f.mu.Lock()
	db := f.db
	f.mu.Unlock()
	if db == nil {
		return relay.NewFacadeError("db.send", relay.ReasonMissingDestination, false, nil,
			"destination table was never initialized")
	}

	rows := make([]logRow, len(batch))
	for i, r := range batch {
		rows[i] = logRow{
			Timestamp: r.Timestamp,
			Message:   r.Text,
		}
	}

	err := db.WithContext(ctx).Table(f.tableName()).CreateInBatches(rows, len(rows)).Error
	if err != nil {
		return classifyDBError("db.send", err)
	}
	return nil
}

func (f *dbFacade) Limits() relay.Limits {
	return f.limits
}

func (f *dbFacade) Describe() string {
	return f.driver + ":" + f.cfg.Name
}

func (f *dbFacade) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.db == nil {
		return nil
	}
	sqlDB, err := f.db.DB()
	f.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// classifyDBError maps driver errors onto the shared taxonomy by message
// inspection: gorm flattens driver-specific types, and the two supported
// drivers phrase the interesting conditions distinctly enough.
func classifyDBError(op string, err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "access denied"),
		strings.Contains(msg, "authentication failed"),
		strings.Contains(msg, "invalid dsn"),
		strings.Contains(msg, "unknown database"),
		strings.Contains(msg, "does not exist") && strings.Contains(msg, "database"):
		return relay.NewFacadeError(op, relay.ReasonInvalidConfiguration, false, err,
			"database rejected the configuration")

	case strings.Contains(msg, "doesn't exist"),
		strings.Contains(msg, "no such table"),
		strings.Contains(msg, "undefined table"),
		strings.Contains(msg, "does not exist"):
		return relay.NewFacadeError(op, relay.ReasonMissingDestination, false, err,
			"destination table is missing")

	case strings.Contains(msg, "too many connections"),
		strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "lock wait timeout"),
		strings.Contains(msg, "timeout"):
		return relay.NewFacadeError(op, relay.ReasonThrottling, true, err,
			"database is saturated")

	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"),
		strings.Contains(msg, "bad connection"),
		strings.Contains(msg, "context deadline exceeded"):
		return relay.NewFacadeError(op, relay.ReasonUnexpected, true, err,
			"database connection failed")

	default:
		return relay.NewFacadeError(op, relay.ReasonUnexpected, false, err,
			"database operation failed")
	}
}

func isAlreadyExists(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate")
}
