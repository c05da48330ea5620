package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	echoapi "github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/notification"
	"github.com/trezcool/attendance/core/setting"
)

var (
	isTerminalFunc = term.IsTerminal // mockable

	errHelp = errors.New("help provided")

	// commands that need the database
	dbCommands = map[string]bool{"migrate": true, "deliver": true, "settings": true}
)

type commandLine struct {
	conf            *core.Config
	db              *sqlx.DB
	notificationSvc notification.Service
	settingSvc      setting.Service

	out         io.Writer
	interactive bool // labelled output for humans, bare values for pipes
}

func newCommandLine(conf *core.Config, db *sqlx.DB, notificationSvc notification.Service, settingSvc setting.Service) *commandLine {
	return &commandLine{
		conf:            conf,
		db:              db,
		notificationSvc: notificationSvc,
		settingSvc:      settingSvc,
		out:             os.Stdout,
		interactive:     isTerminalFunc(int(os.Stdout.Fd())),
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                         - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  token -subject ID [-name N] [-email E] [-admin] - print a signed API token")
	fmt.Fprintln(cli.out, "  deliver                                        - deliver every due guardian notification")
	fmt.Fprintln(cli.out, "  settings                                       - print the school settings")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenSubject := tokenCmd.String("subject", "", "The token subject, eg. a staff member ID.")
	tokenName := tokenCmd.String("name", "", "The subject's display name.")
	tokenEmail := tokenCmd.String("email", "", "The subject's email.")
	tokenAdmin := tokenCmd.Bool("admin", false, "Grant administrator rights.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *tokenSubject == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenSubject, *tokenName, *tokenEmail, *tokenAdmin)
	case "deliver":
		return cli.deliver()
	case "settings":
		return cli.settings()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) token(subject, name, email string, isAdmin bool) error {
	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, subject, name, email, isAdmin))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	if cli.interactive {
		fmt.Fprintf(cli.out, "Token for %q (admin: %t, valid for %s):\n%s\n", subject, isAdmin, cli.conf.Server.JWTExpirationDelta, token)
		return nil
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) deliver() error {
	report, err := cli.notificationSvc.DeliverDue(context.Background())
	if err != nil {
		return errors.Wrap(err, "delivering due notifications")
	}
	if cli.interactive {
		fmt.Fprintf(cli.out, "Sent: %d\nFailed: %d\nSkipped: %d\n", report.Sent, report.Failed, report.Skipped)
		return nil
	}
	return cli.printJSON(report)
}

func (cli *commandLine) settings() error {
	s, err := cli.settingSvc.Get(context.Background())
	if err != nil {
		return errors.Wrap(err, "getting settings")
	}
	if cli.interactive {
		fmt.Fprintf(cli.out, "Late threshold: %s\n", s.LateThreshold())
		fmt.Fprintf(cli.out, "Notification delay: %s\n", s.NotificationDelay())
		fmt.Fprintf(cli.out, "Notify excused: %t\n", s.NotifyExcused)
		fmt.Fprintf(cli.out, "Timezone: %s\n", cli.conf.Location())
		return nil
	}
	return cli.printJSON(s)
}

func (cli *commandLine) printJSON(v interface{}) error {
	return errors.Wrap(json.NewEncoder(cli.out).Encode(v), "encoding output")
}
