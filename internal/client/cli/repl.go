package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. App satisfies it;
// tests provide a recording stub.
type execIface interface {
	Status(ctx context.Context) error
	Write(ctx context.Context) error
	Send(ctx context.Context) error
	Check(ctx context.Context) error
	Tap(ctx context.Context) error
	Open(ctx context.Context) error
	Ack(ctx context.Context) error
	List(ctx context.Context) error
	Read(ctx context.Context, arg string) error
	Close(ctx context.Context) error
	Prefs(ctx context.Context) error
	SetPrefs(ctx context.Context) error
	Server(ctx context.Context, arg string) error
}

const helpText = "Available commands: status, write, send, check, tap, open, ack, (l)ist, read <n|id>, close, prefs, setprefs, server [url], exit"

// runREPL reads commands line by line from reader and dispatches them to a.
// promptFn, when not nil, renders the prompt printed before each line. The
// loop ends on EOF, on "exit"/"quit" or when ctx is done. Command errors are
// reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, promptFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		if promptFn != nil {
			printlnFn(promptFn())
		}

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))

		switch cmd {
		case "help", "?":
			printlnFn(helpText)

		case "status":
			_ = a.Status(ctx)

		case "write":
			_ = a.Write(ctx)

		case "send":
			_ = a.Send(ctx)

		case "check":
			_ = a.Check(ctx)

		case "tap":
			_ = a.Tap(ctx)

		case "open":
			_ = a.Open(ctx)

		case "ack":
			_ = a.Ack(ctx)

		case "l", "list":
			_ = a.List(ctx)

		case "read":
			_ = a.Read(ctx, arg)

		case "close":
			_ = a.Close(ctx)

		case "prefs":
			_ = a.Prefs(ctx)

		case "setprefs":
			_ = a.SetPrefs(ctx)

		case "server":
			_ = a.Server(ctx, arg)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
