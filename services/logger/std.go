package logsvc

import (
	"log"

	"github.com/muddyapp/muddy/core"
)

// StdLogger writes to the standard logger only; used in DEV and TEST.
type StdLogger struct {
	std *log.Logger
}

var _ core.Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

func (l StdLogger) Enable(bool) {}

func (l StdLogger) Info(msg string, args ...interface{}) {
	l.print("INFO: "+msg, args)
}

func (l StdLogger) Error(msg string, err error, args ...interface{}) {
	if err != nil {
		l.std.Printf("ERROR: %s: %+v\n", msg, err)
	} else {
		l.std.Println("ERROR: " + msg)
	}
	l.print("", args)
}

func (l StdLogger) print(msg string, args []interface{}) {
	if msg != "" {
		l.std.Println(msg)
	}
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}
