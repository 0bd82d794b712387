// Package dbic 统一 MySQL、PostgreSQL、SQLite 的客户端接口：
// 预编译语句（? 占位符按方言改写）、单向游标、基于保存点的嵌套事务。
//
// 一个 Conn 及其 Statement、Cursor 不能并发使用，需要并行时每个 goroutine 各开一个 Conn。
package dbic

import (
	"fmt"
	"sync"

	"github.com/Kaguya154/dbic/types"
)

// Drivers 驱动表，由调用方构造后传给 Open，不使用全局注册表
type Drivers struct {
	mu      sync.RWMutex
	drivers map[types.DriverKind]types.Driver
}

// NewDrivers 创建驱动表并注册给定驱动，重复注册时 panic
func NewDrivers(drvs ...types.Driver) *Drivers {
	r := &Drivers{drivers: make(map[types.DriverKind]types.Driver)}
	for _, d := range drvs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Register 注册数据库驱动
func (r *Drivers) Register(drv types.Driver) error {
	if drv == nil {
		return fmt.Errorf("driver cannot be nil")
	}
	kind := drv.Kind()
	if kind == "" {
		return fmt.Errorf("driver kind cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.drivers[kind]; exists {
		return fmt.Errorf("driver %s already registered", kind)
	}
	r.drivers[kind] = drv
	return nil
}

// Get 获取注册的驱动
func (r *Drivers) Get(kind types.DriverKind) (types.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	drv, ok := r.drivers[kind]
	if !ok {
		return nil, fmt.Errorf("driver %s not registered", kind)
	}
	return drv, nil
}

// Kinds 已注册的驱动类型
func (r *Drivers) Kinds() []types.DriverKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]types.DriverKind, 0, len(r.drivers))
	for k := range r.drivers {
		kinds = append(kinds, k)
	}
	return kinds
}

// Open 通过驱动表建立连接
func Open(drivers *Drivers, cfg types.Config) (*Conn, error) {
	if drivers == nil {
		return nil, errorf(KindConnect, "open", "no drivers given")
	}
	drv, err := drivers.Get(cfg.Driver)
	if err != nil {
		return nil, newError(KindConnect, "open", "", err)
	}
	return connect(drv, cfg)
}

// Cond 条件构造器
func Cond() *types.CondBuilder {
	return types.NewCondition()
}
