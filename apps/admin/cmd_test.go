package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/setting"
	testutil "github.com/trezcool/attendance/tests"
)

func setup(t *testing.T, interactive bool) (*commandLine, *testutil.Services, *bytes.Buffer) {
	svcs := testutil.NewServices(t)
	out := new(bytes.Buffer)

	return &commandLine{
		conf:            svcs.Conf,
		notificationSvc: svcs.Notifications,
		settingSvc:      svcs.Settings,
		out:             out,
		interactive:     interactive,
	}, svcs, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()

	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_run(t *testing.T) {
	cli, _, _ := setup(t, false)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "token: no subject", args: []string{"token"}, wantErr: errHelp},
		{name: "token: unknown flag", args: []string{"token", "-lol"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(args))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t, false)

	var gotCommand string
	origMigrate := migrateFunc
	t.Cleanup(func() { migrateFunc = origMigrate })
	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_rooms", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			gotCommand = ""
			tt.check(t, cli.run(args))
			if len(tt.args) > 1 {
				assert.Equal(t, tt.args[1], gotCommand)
			}
		})
	}
}

func Test_commandLine_token(t *testing.T) {
	parse := func(t *testing.T, cli *commandLine, token string) *echoapi.Claims {
		claims := new(echoapi.Claims)
		_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(cli.conf.SecretKey), nil
		})
		require.NoError(t, err)
		return claims
	}

	t.Run("Piped", func(t *testing.T) {
		cli, _, out := setup(t, false)

		require.NoError(t, cli.run([]string{"admin", "token", "-subject", "staff-1", "-name", "Mme Kabila", "-email", "kabila@test.cd", "-admin"}))

		token := strings.TrimSpace(out.String())
		assert.NotContains(t, token, "\n")

		claims := parse(t, cli, token)
		assert.Equal(t, "staff-1", claims.Subject)
		assert.Equal(t, "Mme Kabila", claims.Name)
		assert.Equal(t, "kabila@test.cd", claims.Email)
		assert.True(t, claims.IsAdmin)
		assert.WithinDuration(t, time.Now().Add(cli.conf.Server.JWTExpirationDelta), time.Unix(claims.ExpiresAt, 0), time.Minute)
	})

	t.Run("Interactive", func(t *testing.T) {
		cli, _, out := setup(t, true)

		require.NoError(t, cli.run([]string{"admin", "token", "-subject", "staff-2"}))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `Token for "staff-2" (admin: false`)
		assert.False(t, parse(t, cli, lines[1]).IsAdmin)
	})
}

func Test_commandLine_deliver(t *testing.T) {
	recordAbsence := func(t *testing.T, svcs *testutil.Services) {
		math := testutil.CreateSection(t, svcs.Sections, "MATH101", "monday,wednesday,friday", "08:00", "09:30")
		hero := testutil.CreateStudent(t, svcs.Guardians, "Hero")
		testutil.CreateGuardian(t, svcs.Guardians, "Mum", "mum@test.cd", "", "", hero.ID)
		testutil.CreateGuardian(t, svcs.Guardians, "Dad", "dad@test.cd", "+243812345678", "", hero.ID)

		_, err := svcs.Attendances.Record(context.Background(), attendance.NewAttendance{
			StudentID: hero.ID, SectionID: math.ID, Date: "2026-10-14", Status: attendance.StatusAbsent,
		})
		require.NoError(t, err)
	}
	wednesdayMorning := time.Date(2026, time.October, 14, 8, 30, 0, 0, time.UTC)

	t.Run("Piped", func(t *testing.T) {
		cli, svcs, out := setup(t, false)
		testutil.MockNow(t, wednesdayMorning)
		recordAbsence(t, svcs)

		require.NoError(t, cli.run([]string{"admin", "deliver"}))

		var report notification.DeliveryReport
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, notification.DeliveryReport{Sent: 2}, report)
		assert.Len(t, svcs.Mails.SentMessages(), 1)
		assert.Len(t, svcs.Messages.SentMessages(), 1)

		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "deliver"}))
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, notification.DeliveryReport{}, report)
	})

	t.Run("Interactive", func(t *testing.T) {
		cli, svcs, out := setup(t, true)
		testutil.MockNow(t, wednesdayMorning)
		recordAbsence(t, svcs)

		require.NoError(t, cli.run([]string{"admin", "deliver"}))
		assert.Equal(t, "Sent: 2\nFailed: 0\nSkipped: 0\n", out.String())
	})
}

func Test_commandLine_settings(t *testing.T) {
	t.Run("Piped", func(t *testing.T) {
		cli, _, out := setup(t, false)

		require.NoError(t, cli.run([]string{"admin", "settings"}))

		var s setting.Settings
		require.NoError(t, json.Unmarshal(out.Bytes(), &s))
		assert.Equal(t, setting.DefaultLateThresholdMinutes, s.LateThresholdMinutes)
		assert.Equal(t, setting.DefaultNotificationDelayMinutes, s.NotificationDelayMinutes)
		assert.Equal(t, setting.DefaultNotifyExcused, s.NotifyExcused)
	})

	t.Run("Interactive", func(t *testing.T) {
		cli, svcs, out := setup(t, true)
		notify := false
		_, err := svcs.Settings.Update(context.Background(), setting.UpdateSettings{NotifyExcused: &notify})
		require.NoError(t, err)

		require.NoError(t, cli.run([]string{"admin", "settings"}))
		assert.Contains(t, out.String(), "Late threshold: 10m0s\n")
		assert.Contains(t, out.String(), "Notify excused: false\n")
	})
}

func Test_newCommandLine(t *testing.T) {
	orig := isTerminalFunc
	t.Cleanup(func() { isTerminalFunc = orig })

	for _, terminal := range []bool{true, false} {
		isTerminalFunc = func(int) bool { return terminal }
		assert.Equal(t, terminal, newCommandLine(testutil.NewConfig(), nil, nil, nil).interactive)
	}
}
