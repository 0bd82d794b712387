package mysql

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/Kaguya154/dbic/drivers/sqlbase"
	"github.com/Kaguya154/dbic/parser"
	"github.com/Kaguya154/dbic/types"

	"github.com/go-sql-driver/mysql"
)

const DriverName = "mysql"

const (
	defaultHost = "127.0.0.1"
	defaultPort = "3306"
)

// MySQLDriver 实现 types.Driver
type MySQLDriver struct{}

func GetDriver() *MySQLDriver {
	return &MySQLDriver{}
}

func (d *MySQLDriver) Kind() types.DriverKind {
	return types.MySQL
}

func (d *MySQLDriver) Dialect() types.Dialect {
	return types.DialectQuestion
}

func (d *MySQLDriver) Quote(identifier string) string {
	return fmt.Sprintf("`%s`", strings.ReplaceAll(identifier, "`", "``"))
}

func (d *MySQLDriver) Escape(value string) string {
	return parser.EscapeLiteral(value, true)
}

// DSN 按连接参数生成 go-sql-driver 格式的 DSN，
// Options 原样作为 DSN 参数（parseTime、tls、charset 等），并用 ParseDSN 校验。
func DSN(cfg types.Config) (string, error) {
	if cfg.DSN != "" {
		if _, err := mysql.ParseDSN(cfg.DSN); err != nil {
			return "", err
		}
		return cfg.DSN, nil
	}

	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == "" || port == "0" {
		port = defaultPort
	}

	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, port)
	mc.DBName = cfg.Database
	dsn := mc.FormatDSN()

	if len(cfg.Options) > 0 {
		q := url.Values{}
		for k, v := range cfg.Options {
			q.Set(k, v)
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + q.Encode()
	}
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

func (d *MySQLDriver) Connect(cfg types.Config) (types.Session, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	return sqlbase.Open(sqlbase.Options{
		DriverName: DriverName,
		DSN:        dsn,
		BeginSQL:   "START TRANSACTION",
		Classify:   classify,
	})
}

// 服务端主动断开会话的错误码
var lostCodes = map[uint16]bool{
	1053: true, // ER_SERVER_SHUTDOWN
	1152: true, // ER_ABORTING_CONNECTION
	1927: true, // ER_CONNECTION_KILLED
}

func classify(err error) error {
	if errors.Is(err, mysql.ErrInvalidConn) {
		return fmt.Errorf("%w: %w", types.ErrConnLost, err)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && lostCodes[me.Number] {
		return fmt.Errorf("%w: %w", types.ErrConnLost, err)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return fmt.Errorf("%w: %w", types.ErrConnLost, err)
	}
	return err
}

// IsDuplicate 唯一键冲突 (ER_DUP_ENTRY)
func IsDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
