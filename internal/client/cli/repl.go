package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Status(ctx context.Context) error
	Rotate(ctx context.Context) error
	Orphans(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the manokeeper CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF
// or when the user types "exit" or "quit".
//
//	help           show available commands
//	status         signed-in user, organisation and encryption state
//	rotate         change the organisation key
//	orphans        list file copies left behind by rotations
//	cleanup        delete those copies on the server
//	exit | quit    leave the program
//
// Errors returned by command handlers are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("mk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		var err error
		switch cmd := parts[0]; cmd {
		case "help":
			printlnFn("Available commands: status, rotate, orphans, cleanup, exit")
		case "status":
			err = a.Status(ctx)
		case "rotate":
			err = a.Rotate(ctx)
		case "orphans":
			err = a.Orphans(ctx)
		case "cleanup":
			err = a.Cleanup(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
