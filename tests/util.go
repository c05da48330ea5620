package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/attendance/assets"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/guardian"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/schedule"
	"github.com/trezcool/attendance/core/section"
	"github.com/trezcool/attendance/core/setting"
	emailsvc "github.com/trezcool/attendance/services/email"
	logsvc "github.com/trezcool/attendance/services/logger"
	messagingsvc "github.com/trezcool/attendance/services/messaging"
	"github.com/trezcool/attendance/storage/database"
	inmemdb "github.com/trezcool/attendance/storage/database/inmem"
	sqlxrepos "github.com/trezcool/attendance/storage/database/sqlx"
)

const testDatabaseURLEnv = "TEST_DATABASE_URL"

var templatesOnce sync.Once

func NewConfig() *core.Config {
	return &core.Config{
		Env:              "TEST",
		TestMode:         true,
		AppName:          "Attendance",
		SecretKey:        "test-secret-key",
		Timezone:         "UTC",
		DefaultFromEmail: "Attendance <noreply@test.cd>",
		Server: core.ServerConfig{
			Host:               ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
	}
}

// NewLogger returns a silent logger with rollbar disabled.
func NewLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom tag registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// Services is the whole service graph, wired on the in-memory or the postgres repositories.
type Services struct {
	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	DB         *inmemdb.DB // nil on postgres
	SQLDB      *sqlx.DB    // nil in memory

	Mails    *emailsvc.ConsoleService
	Messages *messagingsvc.ConsoleSender
	Senders  notification.Senders

	Sections      section.Service
	Guardians     guardian.Service
	Attendances   attendance.Service
	Notifications notification.Service
	Settings      setting.Service
}

type repositories struct {
	settings      setting.Repository
	sections      section.Repository
	guardians     guardian.Repository
	attendances   attendance.Repository
	notifications notification.Repository
	tx            core.Transactor
}

// NewServices wires the services on a fresh in-memory DB. If given, `senders` replaces the console senders.
func NewServices(t *testing.T, senders ...notification.Senders) *Services {
	t.Helper()

	db := inmemdb.Open()
	s := newServices(repositories{
		settings:      inmemdb.NewSettingRepository(db),
		sections:      inmemdb.NewSectionRepository(db),
		guardians:     inmemdb.NewGuardianRepository(db),
		attendances:   inmemdb.NewAttendanceRepository(db),
		notifications: inmemdb.NewNotificationRepository(db),
		tx:            core.NoopTransactor(),
	}, senders...)
	s.DB = db
	return s
}

// NewSQLServices wires the services on the postgres DB returned by PrepareDB.
func NewSQLServices(t *testing.T, senders ...notification.Senders) *Services {
	t.Helper()

	db := PrepareDB(t)
	s := newServices(repositories{
		settings:      sqlxrepos.NewSettingRepository(db),
		sections:      sqlxrepos.NewSectionRepository(db),
		guardians:     sqlxrepos.NewGuardianRepository(db),
		attendances:   sqlxrepos.NewAttendanceRepository(db),
		notifications: sqlxrepos.NewNotificationRepository(db),
		tx:            core.NewTransactor(db),
	}, senders...)
	s.SQLDB = db
	return s
}

func newServices(repos repositories, senders ...notification.Senders) *Services {
	conf := NewConfig()
	logger := NewLogger(conf)
	templatesOnce.Do(func() {
		core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf.AppName, true /* strict */, logger)
	})

	s := &Services{
		Conf:     conf,
		Logger:   logger,
		Mails:    emailsvc.NewConsoleServiceMock(conf),
		Messages: messagingsvc.NewConsoleSender(nil),
	}
	s.Validate, s.Translator = NewValidator()

	if len(senders) > 0 {
		s.Senders = senders[0]
	} else {
		email := emailsvc.NewNotifier(s.Mails)
		s.Senders = notification.Senders{
			notification.MethodEmail:    email,
			notification.MethodSMS:      s.Messages,
			notification.MethodWhatsApp: s.Messages,
		}
	}

	s.Settings = setting.NewService(repos.settings)
	s.Sections = section.NewService(repos.sections, conf)
	s.Guardians = guardian.NewService(repos.guardians)
	s.Notifications = notification.NewService(repos.notifications, s.Guardians, s.Senders, logger)
	s.Attendances = attendance.NewService(
		repos.attendances,
		repos.tx,
		s.Sections,
		s.Guardians,
		s.Notifications,
		s.Settings,
		conf,
	)
	return s
}

// MockNow pins core.NowFunc to `now` until the test ends.
func MockNow(t *testing.T, now time.Time) {
	orig := core.NowFunc
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = orig })
}

func CreateStudent(t *testing.T, svc guardian.Service, name string) guardian.Student {
	std, err := svc.CreateStudent(context.Background(), guardian.NewStudent{Name: name})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreateGuardian(t *testing.T, svc guardian.Service, name, email, phone, whatsapp string, studentIDs ...string) guardian.Guardian {
	g, err := svc.CreateGuardian(context.Background(), guardian.NewGuardian{
		Name:       name,
		Email:      email,
		Phone:      phone,
		WhatsApp:   whatsapp,
		StudentIDs: studentIDs,
	})
	if err != nil {
		t.Fatalf("CreateGuardian() failed: %v", err)
	}
	return g
}

// CreateSection creates a section meeting on `days` (comma-joined names) from `start` to `end`.
func CreateSection(t *testing.T, svc section.Service, code, days, start, end string) section.Section {
	wds, err := schedule.ParseDays(days)
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	names := make([]string, 0, len(wds))
	for _, d := range wds {
		names = append(names, d.String())
	}
	sec, err := svc.Create(context.Background(), section.NewSection{
		CourseCode:  code,
		Name:        code + " lecture",
		TeacherName: "Mr Teacher",
		Room:        "B12",
		Capacity:    30,
		Days:        names,
		StartTime:   start,
		EndTime:     end,
	})
	if err != nil {
		t.Fatalf("CreateSection() failed: %v", err)
	}
	return sec
}

// PrepareDB opens the postgres DB named by TEST_DATABASE_URL, migrates it and empties every table.
// The test is skipped when the variable is unset.
func PrepareDB(t *testing.T) *sqlx.DB {
	dsn := os.Getenv(testDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDatabaseURLEnv)
	}

	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	ResetDB(t, db)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	if _, err := db.Exec(
		"TRUNCATE notification, attendance, guardian_student, guardian, student, course_section, settings CASCADE",
	); err != nil {
		t.Fatalf("ResetDB() failed: %v", err)
	}
}
