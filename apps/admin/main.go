package main

import (
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/attendance/assets"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/setting"
	emailsvc "github.com/trezcool/attendance/services/email"
	logsvc "github.com/trezcool/attendance/services/logger"
	messagingsvc "github.com/trezcool/attendance/services/messaging"
	"github.com/trezcool/attendance/storage/database"
	sqlxrepos "github.com/trezcool/attendance/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	var (
		db              *sqlx.DB
		notificationSvc notification.Service
		settingSvc      setting.Service
	)
	if len(os.Args) > 1 && dbCommands[os.Args[1]] {
		var err error
		if db, err = database.Open(conf); err != nil {
			logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
		}
		defer func() { _ = db.Close() }()

		core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf.AppName, conf.Debug /* strict */, logger)

		var mailSvc core.EmailService = emailsvc.NewSendgridService(conf, logger)
		if conf.Debug {
			mailSvc = emailsvc.NewConsoleService(conf)
		}
		senders := messagingsvc.NewSenders(conf, emailsvc.NewNotifier(mailSvc), logger)

		guardianSvc := guardian.NewService(sqlxrepos.NewGuardianRepository(db))
		notificationSvc = notification.NewService(sqlxrepos.NewNotificationRepository(db), guardianSvc, senders, logger)
		settingSvc = setting.NewService(sqlxrepos.NewSettingRepository(db))
	}

	cli := newCommandLine(conf, db, notificationSvc, settingSvc)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		if db != nil {
			_ = db.Close()
		}
		os.Exit(1)
	}
}
