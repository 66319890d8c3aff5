package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/models"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isUnlocked() bool
	Unlock(ctx context.Context) error
	Lock(ctx context.Context) error
	List(ctx context.Context) error
	Search(ctx context.Context, query string) error
	Add(ctx context.Context, kind models.Kind, opts AddOptions) (*models.SecureItem, error)
	Show(ctx context.Context, id, exportDir string) error
	Update(ctx context.Context, id, filePath string) error
	Delete(ctx context.Context, id string) error
	Passwd(ctx context.Context) error
}

const helpLocked = "Available commands: unlock, (l)ist, search <query>, delete <id>, exit"

var (
	usageAdd     = "add <" + kindNames("|") + "> [name]"
	helpUnlocked = "Available commands: (l)ist, search <query>, " + usageAdd + ", show <id> [export-dir], update <id>, delete <id>, passwd, lock, exit"
)

// kindNames joins the supported item kinds with sep.
func kindNames(sep string) string {
	names := make([]string, len(models.Kinds))
	for i, k := range models.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, sep)
}

// runREPL starts a read–eval–print loop over an opened vault.
//
// It reads a line from reader, parses the first token as the command,
// and dispatches to methods on 'a'. Command errors are reported to w and do
// not stop the loop. The loop exits on EOF, on "exit"/"quit", or when
// ctx is done.
//
// Commands available while locked:
//
//	help, unlock, list, search <query>, delete <id>, exit | quit
//
// Additionally, while unlocked:
//
//	add <kind> [name], show <id> [export-dir], update <id>, passwd, lock
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "gv (%s)> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		err = nil
		switch cmd {
		case "help":
			if a.isUnlocked() {
				fmt.Fprintln(w, helpUnlocked)
			} else {
				fmt.Fprintln(w, helpLocked)
			}

		case "unlock":
			err = a.Unlock(ctx)

		case "lock":
			err = a.Lock(ctx)

		case "l", "list":
			err = a.List(ctx)

		case "search":
			err = a.Search(ctx, strings.Join(args, " "))

		case "add":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: "+usageAdd)
				continue
			}
			_, err = a.Add(ctx, models.Kind(args[0]), AddOptions{
				Name:       strings.Join(args[1:], " "),
				PromptTags: true,
			})

		case "show":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: show <id> [export-dir]")
				continue
			}
			exportDir := ""
			if len(args) > 1 {
				exportDir = args[1]
			}
			err = a.Show(ctx, args[0], exportDir)

		case "update":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: update <id>")
				continue
			}
			err = a.Update(ctx, args[0], "")

		case "delete":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: delete <id>")
				continue
			}
			err = a.Delete(ctx, args[0])

		case "passwd":
			err = a.Passwd(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if err != nil {
			fmt.Fprintln(w, "Error:", describeError(err))
		}
	}
}

// Shell runs the interactive loop until exit or EOF.
func (a *App) Shell(ctx context.Context) {
	a.println("Welcome to gophvault (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}
