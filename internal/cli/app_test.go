package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPasswords makes readPassword return the given values in order and fail
// once they run out.
func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(pws) {
			return nil, io.EOF
		}
		p := []byte(pws[i])
		i++
		return p, nil
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.DSN = filepath.Join(t.TempDir(), "vault.db")
	c.LogLevel = "error"
	return c
}

func newTestApp(t *testing.T, cfg *config.Config, input string) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	app, err := NewApp(context.Background(), cfg, strings.NewReader(input), &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, &out
}

func TestApp_AddAndShowNote(t *testing.T) {
	stubPasswords(t, "pw")
	ctx := context.Background()
	app, out := newTestApp(t, testConfig(t), "Groceries\nmilk\neggs\n\nhome\n\n")

	item, err := app.Add(ctx, models.KindNote, AddOptions{PromptTags: true})
	require.NoError(t, err)
	assert.Equal(t, "Groceries", item.Name)
	assert.Equal(t, []string{"home"}, item.Tags)
	assert.Equal(t, "milk\neggs", item.Payload)
	assert.Contains(t, out.String(), "Added "+item.ID)

	out.Reset()
	require.NoError(t, app.Show(ctx, item.ID, ""))
	assert.Contains(t, out.String(), "Name:    Groceries")
	assert.Contains(t, out.String(), "milk\neggs")
}

func TestApp_AddPassword(t *testing.T) {
	stubPasswords(t, "master", "s3cret")
	ctx := context.Background()
	app, out := newTestApp(t, testConfig(t), "alice\nhttps://example.com\n")

	item, err := app.Add(ctx, models.KindPassword, AddOptions{Name: "github", Tags: []string{"work"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"username": "alice", "password": "s3cret", "url": "https://example.com"}, item.Payload)

	out.Reset()
	require.NoError(t, app.Show(ctx, item.ID, ""))
	assert.Contains(t, out.String(), `"password": "s3cret"`)
}

func TestApp_AddInvalidKindDoesNotPrompt(t *testing.T) {
	stubPasswords(t)
	app, _ := newTestApp(t, testConfig(t), "")

	_, err := app.Add(context.Background(), models.Kind("video"), AddOptions{Name: "x"})
	require.ErrorIs(t, err, common.ErrInvalidKind)
}

func TestApp_AddRequiresName(t *testing.T) {
	stubPasswords(t, "pw")
	app, _ := newTestApp(t, testConfig(t), "\n")

	_, err := app.Add(context.Background(), models.KindNote, AddOptions{})
	require.ErrorContains(t, err, "name is required")
}

func TestApp_FileExport(t *testing.T) {
	stubPasswords(t, "pw")
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "id_ed25519")
	content := []byte{0x00, 0x01, 0xfe, 'k', 'e', 'y'}
	require.NoError(t, os.WriteFile(src, content, 0o600))

	app, out := newTestApp(t, testConfig(t), "")
	item, err := app.Add(ctx, models.KindFile, AddOptions{Name: "ssh key", File: src})
	require.NoError(t, err)

	exportDir := filepath.Join(t.TempDir(), "export")
	out.Reset()
	require.NoError(t, app.Show(ctx, item.ID, exportDir))
	assert.Contains(t, out.String(), "File:    id_ed25519 (6 bytes)")

	got, err := os.ReadFile(filepath.Join(exportDir, "id_ed25519"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestApp_Update(t *testing.T) {
	stubPasswords(t, "pw")
	ctx := context.Background()
	app, out := newTestApp(t, testConfig(t), "first\n\nsecond\n\n")

	item, err := app.Add(ctx, models.KindNote, AddOptions{Name: "n"})
	require.NoError(t, err)

	require.NoError(t, app.Update(ctx, item.ID, ""))
	assert.Contains(t, out.String(), "Updated "+item.ID)

	got, err := app.vault.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Payload)
	assert.Equal(t, int64(2), got.Version)
}

func TestApp_ListAndDeleteWhileLocked(t *testing.T) {
	stubPasswords(t, "pw")
	ctx := context.Background()
	cfg := testConfig(t)

	app, out := newTestApp(t, cfg, "body\n\n")
	item, err := app.Add(ctx, models.KindNote, AddOptions{Name: "Plans", Tags: []string{"work", "urgent"}})
	require.NoError(t, err)
	require.NoError(t, app.Lock(ctx))
	assert.Equal(t, "locked", app.getStatus())

	// No passphrase left: anything that prompts would fail.
	out.Reset()
	require.NoError(t, app.List(ctx))
	assert.Contains(t, out.String(), "Plans")
	assert.Contains(t, out.String(), "work,urgent")

	out.Reset()
	require.NoError(t, app.Search(ctx, "URGENT"))
	assert.Contains(t, out.String(), item.ID)

	out.Reset()
	require.NoError(t, app.Search(ctx, "nope"))
	assert.Contains(t, out.String(), "No items")

	require.NoError(t, app.Delete(ctx, item.ID))
	require.NoError(t, app.Delete(ctx, item.ID))
	assert.False(t, app.isUnlocked())
}

func TestApp_WrongPassphrase(t *testing.T) {
	stubPasswords(t, "correct-horse", "wrong-horse")
	ctx := context.Background()
	app, _ := newTestApp(t, testConfig(t), "p@ss1\n\n")

	item, err := app.Add(ctx, models.KindNote, AddOptions{Name: "secret"})
	require.NoError(t, err)
	require.NoError(t, app.Lock(ctx))

	err = app.Show(ctx, item.ID, "")
	require.ErrorIs(t, err, common.ErrDecryption)
	assert.Equal(t, "unlocked", app.getStatus())
}

func TestApp_Passwd(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	stubPasswords(t, "old", "old", "new", "new", "old")
	app, _ := newTestApp(t, cfg, "text\n\n")

	item, err := app.Add(ctx, models.KindNote, AddOptions{Name: "n"})
	require.NoError(t, err)
	require.NoError(t, app.Passwd(ctx))

	require.NoError(t, app.Lock(ctx))
	err = app.Show(ctx, item.ID, "")
	require.ErrorIs(t, err, common.ErrDecryption, "old passphrase must no longer work")
}

func TestApp_PasswdMismatch(t *testing.T) {
	stubPasswords(t, "old", "new", "typo")
	app, _ := newTestApp(t, testConfig(t), "")

	require.ErrorIs(t, app.Passwd(context.Background()), errPassphraseMismatch)
}

func TestApp_UnlockPromptError(t *testing.T) {
	stubPasswords(t)
	app, _ := newTestApp(t, testConfig(t), "")

	err := app.Show(context.Background(), "x", "")
	require.ErrorIs(t, err, io.EOF)
}

func TestNewApp_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.LogLevel = "loud"
	_, err := NewApp(context.Background(), cfg, strings.NewReader(""), io.Discard)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.KDF = "md5"
	_, err = NewApp(context.Background(), cfg, strings.NewReader(""), io.Discard)
	require.Error(t, err)

	cfg = testConfig(t)
	cfg.Driver = "mysql"
	_, err = NewApp(context.Background(), cfg, strings.NewReader(""), io.Discard)
	require.Error(t, err)
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{common.ErrLocked, "vault is locked"},
		{fmt.Errorf("x: %w", common.ErrNotFound), "item not found"},
		{common.ErrDecryption, "wrong passphrase"},
		{common.ErrConflict, "changed concurrently"},
		{fmt.Errorf("%w: minimum is 8 characters", common.ErrWeakPassphrase), "minimum is 8"},
		{fmt.Errorf("list items: %w: %w", common.ErrStorage, errors.New("disk")), "storage failure"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		assert.Contains(t, describeError(tt.err), tt.want)
	}
}

func TestCommandError_KeepsChain(t *testing.T) {
	driverErr := errors.New("disk I/O error")
	err := error(&commandError{err: fmt.Errorf("list items: %w: %w", common.ErrStorage, driverErr)})

	assert.Equal(t, "storage failure: list items: storage error: disk I/O error", err.Error())
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.ErrorIs(t, err, driverErr)
}
