package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/muddyapp/muddy/core"
	"github.com/muddyapp/muddy/core/session"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	conf    *core.Config
	sessSvc *session.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate up|down|status|version|... - run a database migration command")
	fmt.Println("  staffkey - hash a staff access key for the STAFF_KEY_HASH setting. The key will be prompted next.")
	fmt.Println("  sweepsessions - deactivate expired class sessions and drop their rate records")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "staffkey":
		fmt.Print("Enter staff key:")
		key, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(key) == 0 {
			cli.printUsage()
			return errHelp
		}
		return cli.staffKey(key)
	case "sweepsessions":
		return cli.sessSvc.SweepExpired(context.Background())
	default:
		cli.printUsage()
		return errHelp
	}
}
