package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/section"
	"github.com/trezcool/attendance/core/setting"
	emailsvc "github.com/trezcool/attendance/services/email"
	logsvc "github.com/trezcool/attendance/services/logger"
	messagingsvc "github.com/trezcool/attendance/services/messaging"
	"github.com/trezcool/attendance/storage/database"
	sqlxrepos "github.com/trezcool/attendance/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(context.Background(), conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newSenders(conf *core.Config, mailSvc core.EmailService, logger core.Logger) notification.Senders {
	return messagingsvc.NewSenders(conf, emailsvc.NewNotifier(mailSvc), logger)
}

// provideRepositories provides the sqlx repositories as their domain interfaces.
func provideRepositories(c *dig.Container) error {
	repos := []struct {
		constructor interface{}
		iface       interface{}
	}{
		{sqlxrepos.NewSettingRepository, new(setting.Repository)},
		{sqlxrepos.NewSectionRepository, new(section.Repository)},
		{sqlxrepos.NewGuardianRepository, new(guardian.Repository)},
		{sqlxrepos.NewAttendanceRepository, new(attendance.Repository)},
		{sqlxrepos.NewNotificationRepository, new(notification.Repository)},
	}
	for _, r := range repos {
		if err := c.Provide(r.constructor, dig.As(r.iface)); err != nil {
			return err
		}
	}
	return nil
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(core.NewTransactor))
	must(c.Provide(newEmailService))
	must(c.Provide(newSenders))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))

	must(provideRepositories(c))

	// services
	must(c.Provide(setting.NewService))
	must(c.Provide(section.NewService))
	must(c.Provide(guardian.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(attendance.NewService))

	must(c.Provide(echoapi.NewServer))

	if os.Getenv("DIG_VISUALIZE") != "" {
		_ = dig.Visualize(c, os.Stdout)
	}

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
