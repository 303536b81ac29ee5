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
	Set(ctx context.Context, args []string) error
	Unset(ctx context.Context, args []string) error
	Fields(ctx context.Context) error
	AddFile(ctx context.Context, args []string) error
	RemoveFile(ctx context.Context, args []string) error
	Files(ctx context.Context) error
	Export(ctx context.Context, args []string) error
	Submit(ctx context.Context) error
	Clear(ctx context.Context) error
	Status(ctx context.Context) error
}

const helpText = `Available commands:
  set <field> [value]     answer a question (no value: multi-line input)
  unset <field>           remove an answer
  fields                  show the answers
  addfile <path>...       attach files
  rmfile <n>              remove the n-th attached file
  files                   list attached files
  export [dir|s3]         export the claim
  submit                  validate, finalize and export the claim
  clear                   discard the claim and start over
  status                  show storage state
  exit | quit             leave the program`

// runREPL starts a simple read–eval–print loop for the claimkeeper CLI.
//
// It reads a line from reader, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on EOF, when ctx is done or when the
// user types "exit" or "quit". Commands that prompt for more input read from
// the same reader, so nothing is buffered ahead of them.
//
// Errors returned by command handlers are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("claim %s> ", statusFn()))
		line, readErr := reader.ReadString('\n')
		if readErr != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help", "?":
			printlnFn(helpText)

		case "set":
			err = a.Set(ctx, args)

		case "unset":
			err = a.Unset(ctx, args)

		case "fields":
			err = a.Fields(ctx)

		case "addfile", "add":
			err = a.AddFile(ctx, args)

		case "rmfile", "rm":
			err = a.RemoveFile(ctx, args)

		case "l", "files":
			err = a.Files(ctx)

		case "export":
			err = a.Export(ctx, args)

		case "submit":
			err = a.Submit(ctx)

		case "clear":
			err = a.Clear(ctx)

		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
