package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/keymgr"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/vault"
)

// App binds an opened vault to terminal input and output.
type App struct {
	config *config.Config
	store  repomanager.Manager
	vault  *vault.Vault
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the storage backend described by c and returns a locked app.
// Logs go to stderr.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	log, err := logging.New(os.Stderr, c.LogLevel, c.LogFormat)
	if err != nil {
		return nil, err
	}

	deriver, err := keymgr.NewDeriver(c.KDF, nil)
	if err != nil {
		return nil, err
	}

	store, err := repomanager.Open(ctx, c.Driver, c.DSN, c.OpenTimeout)
	if err != nil {
		return nil, fmt.Errorf("error opening %s vault: %w", c.Driver, err)
	}

	v := vault.New(store,
		vault.WithLogger(log.With("driver", c.Driver)),
		vault.WithDeriver(deriver),
		vault.WithMinPassphraseLength(c.MinPassphraseLength),
	)

	return &App{
		config: c,
		store:  store,
		vault:  v,
		log:    log,
		reader: bufio.NewReader(in),
		out:    out,
	}, nil
}

// Close locks the vault and releases the backend.
func (a *App) Close() error {
	a.vault.Lock()
	return a.store.Close()
}

func (a *App) isUnlocked() bool {
	return a.vault.IsUnlocked()
}

func (a *App) getStatus() string {
	if a.isUnlocked() {
		return "unlocked"
	}
	return "locked"
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
