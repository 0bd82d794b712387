package sqlite

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Kaguya154/dbic/drivers/sqlbase"
	"github.com/Kaguya154/dbic/parser"
	"github.com/Kaguya154/dbic/types"

	"github.com/mattn/go-sqlite3"
)

const DriverName = "sqlite3"

// SQLiteDriver 实现 types.Driver
type SQLiteDriver struct{}

func GetDriver() *SQLiteDriver {
	return &SQLiteDriver{}
}

func (d *SQLiteDriver) Kind() types.DriverKind {
	return types.SQLite
}

func (d *SQLiteDriver) Dialect() types.Dialect {
	return types.DialectQuestion
}

func (d *SQLiteDriver) Quote(identifier string) string {
	return fmt.Sprintf("`%s`", identifier)
}

func (d *SQLiteDriver) Escape(value string) string {
	return parser.EscapeLiteral(value, false)
}

// DSN Database 为文件路径，为空时使用内存库，Options 作为 URI 参数追加
func DSN(cfg types.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	dsn := cfg.Database
	if dsn == "" {
		dsn = ":memory:"
	}
	if len(cfg.Options) == 0 {
		return dsn
	}
	q := url.Values{}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + q.Encode()
}

func (d *SQLiteDriver) Connect(cfg types.Config) (types.Session, error) {
	return sqlbase.Open(sqlbase.Options{
		DriverName: DriverName,
		DSN:        DSN(cfg),
		Classify:   classify,
		IsBinary:   isBinary,
	})
}

// isBinary 表达式列没有声明类型，go-sqlite3 只对 BLOB 存储类返回 []byte
func isBinary(dbType string) bool {
	return dbType == "" || strings.EqualFold(dbType, "BLOB")
}

func classify(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Code {
	case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
		return fmt.Errorf("%w: %w", types.ErrConnLost, err)
	}
	return err
}

// IsConstraint 约束冲突（主键、唯一、非空、外键）
func IsConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

// IsBusy 数据库被其它连接锁定
func IsBusy(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && (se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked)
}
