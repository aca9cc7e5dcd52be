package dal

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dc-purchase-api/internal/config"
	mainmodel "dc-purchase-api/internal/model/main"
	ordermodel "dc-purchase-api/internal/model/order"
)

// OrderDB 订单库：dc_purchase_orders / dc_purchase_events / ouis
var OrderDB *gorm.DB

func InitOrderDB() {
	db, err := OpenDB(config.C.Database)
	if err != nil {
		log.Fatalf("connect order db failed: %v", err)
	}
	OrderDB = db
}

// OpenDB 按驱动打开 gorm 连接
func OpenDB(c config.DatabaseCfg) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Driver {
	case "postgres":
		dsn := c.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
				c.Host, c.Port, c.Username, c.Password, c.Database)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		dsn := c.DSN
		if dsn == "" {
			dsn = "file:dc_purchase.db?_busy_timeout=5000"
		}
		dialector = sqlite.Open(dsn)
	case "mysql", "":
		dsn := c.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=True&loc=UTC",
				c.Username, c.Password, c.Host, c.Port, c.Database, c.Charset)
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	gcfg := &gorm.Config{}
	if !c.LogSQL {
		gcfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(c.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)
	return db, nil
}

// AutoMigrate 非 postgres 驱动（mysql/sqlite）用 gorm 建表；postgres 走 golang-migrate
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ordermodel.DcPurchaseOrder{}, &ordermodel.OrderEvent{}, &mainmodel.Oui{})
}
