package db

import (
	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/reviselabs/revise/internal/chat"
	"github.com/reviselabs/revise/internal/models"
	"github.com/reviselabs/revise/internal/shortener"
)

// Connect opens the process-wide gorm handle and runs migrations.
func Connect(driver, dsn string) *gorm.DB {
	var (
		gdb *gorm.DB
		err error
	)
	switch driver {
	case "sqlite":
		gdb, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	default:
		gdb, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	}
	if err != nil {
		logrus.Fatalf("db connect: %v", err)
	}

	if err := gdb.AutoMigrate(
		&models.User{},
		&chat.Session{},
		&chat.Memory{},
		&chat.Message{},
		&shortener.Link{},
	); err != nil {
		logrus.Fatalf("db migrate: %v", err)
	}
	return gdb
}
