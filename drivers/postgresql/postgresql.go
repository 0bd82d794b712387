package postgresql

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"

	"github.com/Kaguya154/dbic/drivers/sqlbase"
	"github.com/Kaguya154/dbic/types"

	"github.com/lib/pq"
)

const DriverName = "postgres"

const (
	defaultHost = "127.0.0.1"
	defaultPort = "5432"
)

// PostgreSQLDriver 实现 types.Driver
type PostgreSQLDriver struct{}

func GetDriver() *PostgreSQLDriver {
	return &PostgreSQLDriver{}
}

func (d *PostgreSQLDriver) Kind() types.DriverKind {
	return types.PostgreSQL
}

func (d *PostgreSQLDriver) Dialect() types.Dialect {
	return types.DialectDollar
}

func (d *PostgreSQLDriver) Quote(identifier string) string {
	return pq.QuoteIdentifier(identifier)
}

func (d *PostgreSQLDriver) Escape(value string) string {
	return pq.QuoteLiteral(value)
}

// DSN 生成 key=value 形式的连接串，未指定 sslmode 时使用 disable
func DSN(cfg types.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == "" || port == "0" {
		port = defaultPort
	}

	parts := []string{
		"host=" + dsnValue(host),
		"port=" + dsnValue(port),
	}
	if cfg.User != "" {
		parts = append(parts, "user="+dsnValue(cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+dsnValue(cfg.Password))
	}
	if cfg.Database != "" {
		parts = append(parts, "dbname="+dsnValue(cfg.Database))
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if _, ok := cfg.Options["sslmode"]; !ok {
		parts = append(parts, "sslmode=disable")
	}
	for _, k := range keys {
		parts = append(parts, k+"="+dsnValue(cfg.Options[k]))
	}
	return strings.Join(parts, " ")
}

// dsnValue 含空格、引号或为空的值需要单引号包裹
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

func (d *PostgreSQLDriver) Connect(cfg types.Config) (types.Session, error) {
	return sqlbase.Open(sqlbase.Options{
		DriverName: DriverName,
		DSN:        DSN(cfg),
		Classify:   classify,

		// 事务块内 COMMIT 失败时服务端总是回滚
		CommitEndsTx: true,
	})
}

func classify(err error) error {
	var pe *pq.Error
	if errors.As(err, &pe) {
		// 08: connection exception, 57P01..57P03: 管理员关闭/崩溃/无法连接
		if pe.Code.Class() == "08" || pe.Code == "57P01" || pe.Code == "57P02" || pe.Code == "57P03" {
			return fmt.Errorf("%w: %w", types.ErrConnLost, err)
		}
		return err
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", types.ErrConnLost, err)
	}
	return err
}

// SQLState 返回错误的 SQLSTATE，非 PostgreSQL 错误返回空串
func SQLState(err error) string {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return string(pe.Code)
	}
	return ""
}
