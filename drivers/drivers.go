// Package drivers 汇总内置的三种后端驱动
package drivers

import (
	"github.com/Kaguya154/dbic"
	"github.com/Kaguya154/dbic/drivers/mysql"
	"github.com/Kaguya154/dbic/drivers/postgresql"
	"github.com/Kaguya154/dbic/drivers/sqlite"
)

// NewRegistry 返回包含 MySQL、PostgreSQL、SQLite 的驱动表
func NewRegistry() *dbic.Drivers {
	return dbic.NewDrivers(
		mysql.GetDriver(),
		postgresql.GetDriver(),
		sqlite.GetDriver(),
	)
}
