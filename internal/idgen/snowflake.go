package idgen

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	nanoid "github.com/jaevor/go-nanoid"
)

var (
	nodeMap sync.Map // map[string]*snowflake.Node

	refOnce sync.Once
	refGen  func() string
)

// InitNode 初始化指定名称的 Snowflake 节点
func InitNode(name string, nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return fmt.Errorf("InitNode failed: %w", err)
	}
	nodeMap.Store(name, n)
	return nil
}

// NewFrom 生成指定节点的 ID
func NewFrom(name string) uint64 {
	val, ok := nodeMap.Load(name)
	if !ok {
		panic(fmt.Sprintf("Snowflake node not initialized: %s", name))
	}
	return uint64(val.(*snowflake.Node).Generate().Int64())
}

// New 默认节点生成器，用于事件 ID
func New() uint64 {
	return NewFrom("default")
}

// NewOrderID 订单对外 ID (UUID v4)
func NewOrderID() string {
	return uuid.NewString()
}

// NewRefToken 关联单号的随机段，15 位 nanoid
func NewRefToken() string {
	refOnce.Do(func() {
		gen, err := nanoid.Standard(15)
		if err != nil {
			panic(fmt.Sprintf("nanoid init failed: %v", err))
		}
		refGen = gen
	})
	return refGen()
}
