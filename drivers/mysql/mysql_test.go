package mysql_test

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/Kaguya154/dbic"
	"github.com/Kaguya154/dbic/drivers/mysql"
	"github.com/Kaguya154/dbic/types"
)

func TestDSN(t *testing.T) {
	dsn, err := mysql.DSN(types.Config{User: "root", Password: "secret", Database: "shop"})
	if err != nil {
		t.Fatalf("DSN 失败: %v", err)
	}
	mc, err := gomysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("生成的 DSN 无法解析: %s %v", dsn, err)
	}
	if mc.User != "root" || mc.Passwd != "secret" || mc.Addr != "127.0.0.1:3306" || mc.DBName != "shop" {
		t.Fatalf("DSN 内容不正确: %s", dsn)
	}

	dsn, err = mysql.DSN(types.Config{Host: "db", Port: "3307", Options: map[string]string{"parseTime": "true"}})
	if err != nil {
		t.Fatalf("DSN 失败: %v", err)
	}
	if !strings.Contains(dsn, "tcp(db:3307)") || !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("DSN = %s", dsn)
	}

	if _, err := mysql.DSN(types.Config{DSN: "not a dsn"}); err == nil {
		t.Fatalf("非法 DSN 应报错")
	}
}

func TestDriverInfo(t *testing.T) {
	d := mysql.GetDriver()
	if d.Kind() != types.MySQL || d.Dialect() != types.DialectQuestion {
		t.Fatalf("Kind=%s Dialect=%d", d.Kind(), d.Dialect())
	}
	if d.Quote("a`b") != "`a``b`" {
		t.Fatalf("Quote = %s", d.Quote("a`b"))
	}
	if d.Escape(`it's \n`) != `'it''s \\n'` {
		t.Fatalf("Escape = %s", d.Escape(`it's \n`))
	}
}

func TestIsDuplicate(t *testing.T) {
	err := fmt.Errorf("insert: %w", &gomysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	if !mysql.IsDuplicate(err) {
		t.Fatalf("IsDuplicate 应识别 1062")
	}
	if mysql.IsDuplicate(io.EOF) {
		t.Fatalf("io.EOF 不是唯一键冲突")
	}
}

// 需要设置 DBIC_TEST_MYSQL_DSN，例如 "root:root@tcp(127.0.0.1:3306)/test"
func TestCRUD_MySQL(t *testing.T) {
	dsn := os.Getenv("DBIC_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("DBIC_TEST_MYSQL_DSN not set")
	}
	conn, err := dbic.Open(dbic.NewDrivers(mysql.GetDriver()), types.Config{Driver: types.MySQL, DSN: dsn})
	if err != nil {
		t.Fatalf("连接数据库失败: %v", err)
	}
	defer conn.Close()

	conn.Execute("DROP TABLE IF EXISTS dbic_test_user")
	if _, err := conn.Execute("CREATE TABLE dbic_test_user (id INT AUTO_INCREMENT PRIMARY KEY, name VARCHAR(64) UNIQUE, age INT) ENGINE=InnoDB"); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	defer conn.Execute("DROP TABLE IF EXISTS dbic_test_user")

	id, err := conn.Insert("dbic_test_user", dbic.Cond().Eq("name", "Tom").Eq("age", 20).Build())
	if err != nil || id == 0 {
		t.Fatalf("插入失败: %v, id=%d", err, id)
	}
	_, err = conn.Insert("dbic_test_user", dbic.Cond().Eq("name", "Tom").Build())
	if !errors.Is(err, dbic.ErrExecution) || !mysql.IsDuplicate(err) {
		t.Fatalf("重复插入应返回 ErrExecution, got %v", err)
	}

	st, err := conn.Prepare("SELECT name, age FROM dbic_test_user WHERE id = ?")
	if err != nil {
		t.Fatalf("预编译失败: %v", err)
	}
	cur, err := st.Execute(id)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	row, _ := cur.Fetchrow()
	if row.GetString("name") != "Tom" || row.GetInt("age") != 20 {
		t.Fatalf("查询结果不正确: %v", row.Map())
	}

	conn.Begin("outer")
	conn.Execute("UPDATE dbic_test_user SET age = 30")
	conn.Transaction(func(c *dbic.Conn) error {
		c.Execute("UPDATE dbic_test_user SET age = 40")
		return errors.New("rollback inner")
	})
	if err := conn.Commit("outer"); err != nil {
		t.Fatalf("提交失败: %v", err)
	}
	cur, _ = st.Execute(id)
	row, _ = cur.Fetchrow()
	if row.GetInt("age") != 30 {
		t.Fatalf("内层回滚后 age 应为 30, got %v", row.Get("age"))
	}
}
