package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/models"
)

// getSimpleText, getMultiline, getTags and getPassword are indirections used
// to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getMultiline  = GetMultiline
	getTags       = GetTags
	getPassword   = GetPassword
)

var errPassphraseMismatch = errors.New("passphrases do not match")

// describeError turns vault errors into messages for the terminal.
func describeError(err error) string {
	switch {
	case errors.Is(err, common.ErrLocked):
		return "vault is locked, run 'unlock' first"
	case errors.Is(err, common.ErrNotFound):
		return "item not found"
	case errors.Is(err, common.ErrDecryption):
		return "cannot decrypt item: wrong passphrase or corrupted record"
	case errors.Is(err, common.ErrConflict):
		return "item was changed concurrently, reload and try again"
	case errors.Is(err, common.ErrWeakPassphrase):
		return err.Error()
	case errors.Is(err, common.ErrStorage):
		return "storage failure: " + err.Error()
	default:
		return err.Error()
	}
}

// commandError carries the user-facing text of a failed command while keeping
// the original error in the chain.
type commandError struct {
	err error
}

func (e *commandError) Error() string { return describeError(e.err) }

func (e *commandError) Unwrap() error { return e.err }

// Unlock prompts for the passphrase and derives the session key.
func (a *App) Unlock(ctx context.Context) error {
	pass, err := getPassword("Enter passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	if err := a.vault.Unlock(ctx, string(pass)); err != nil {
		return err
	}
	a.println("Vault unlocked")
	return nil
}

// Lock discards the session key.
func (a *App) Lock(ctx context.Context) error {
	a.vault.Lock()
	a.println("Vault locked")
	return nil
}

func (a *App) ensureUnlocked(ctx context.Context) error {
	if a.isUnlocked() {
		return nil
	}
	return a.Unlock(ctx)
}

// List prints every item's metadata. It does not need the passphrase.
func (a *App) List(ctx context.Context) error {
	metas, err := a.vault.List(ctx)
	if err != nil {
		return err
	}
	a.printItems(metas)
	return nil
}

// Search prints items whose name or tags contain query.
func (a *App) Search(ctx context.Context, query string) error {
	metas, err := a.vault.Search(ctx, query)
	if err != nil {
		return err
	}
	a.printItems(metas)
	return nil
}

func (a *App) printItems(metas []models.ItemMeta) {
	if len(metas) == 0 {
		a.println("No items")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tNAME\tTAGS\tCREATED\tLAST ACCESSED")
	for _, m := range metas {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Kind, m.Name, strings.Join(m.Tags, ","),
			m.CreatedAt.Local().Format(time.DateTime), m.LastAccessedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

// AddOptions carries values given on the command line. Empty fields are
// prompted for.
type AddOptions struct {
	Name       string
	Tags       []string
	File       string
	PromptTags bool
}

// Add reads a payload of the given kind and stores it as a new item.
func (a *App) Add(ctx context.Context, kind models.Kind, opts AddOptions) (*models.SecureItem, error) {
	if _, err := models.ParseKind(string(kind)); err != nil {
		return nil, err
	}
	if err := a.ensureUnlocked(ctx); err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		var err error
		name, err = getSimpleText(a.reader, "Enter name", a.out)
		if err != nil {
			return nil, fmt.Errorf("get name: %w", err)
		}
		if name == "" {
			return nil, fmt.Errorf("name is required")
		}
	}

	payload, err := a.readPayload(kind, opts.File)
	if err != nil {
		return nil, err
	}

	tags := opts.Tags
	if tags == nil && opts.PromptTags {
		tags, err = getTags(a.reader, a.out)
		if err != nil {
			return nil, err
		}
	}

	item, err := a.vault.Add(ctx, name, kind, payload, tags...)
	if err != nil {
		return nil, err
	}
	a.printf("Added %s\n", item.ID)
	return item, nil
}

func (a *App) readPayload(kind models.Kind, filePath string) (any, error) {
	switch kind {
	case models.KindPassword:
		username, err := getSimpleText(a.reader, "Enter username", a.out)
		if err != nil {
			return nil, err
		}
		pw, err := getPassword("Enter password", a.out)
		if err != nil {
			return nil, err
		}
		defer common.WipeByteArray(pw)
		url, err := getSimpleText(a.reader, "Enter URL", a.out)
		if err != nil {
			return nil, err
		}
		return map[string]any{"username": username, "password": string(pw), "url": url}, nil

	case models.KindNote:
		return getMultiline(a.reader, "Enter note text", a.out)

	case models.KindFile:
		if filePath == "" {
			var err error
			filePath, err = getSimpleText(a.reader, "Enter file path", a.out)
			if err != nil {
				return nil, err
			}
		}
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		return map[string]any{
			"filename": filepath.Base(filePath),
			"content":  base64.StdEncoding.EncodeToString(data),
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidKind, kind)
	}
}

// Show decrypts and prints an item. For file items with exportDir set, the
// content is written to exportDir as well.
func (a *App) Show(ctx context.Context, id, exportDir string) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	item, err := a.vault.Get(ctx, id)
	if err != nil {
		return err
	}

	a.printf("ID:      %s\nName:    %s\nKind:    %s\nTags:    %s\nVersion: %d\n",
		item.ID, item.Name, item.Kind, strings.Join(item.Tags, ","), item.Version)

	if item.Kind == models.KindFile {
		return a.showFile(item, exportDir)
	}

	switch p := item.Payload.(type) {
	case string:
		a.println(p)
	default:
		b, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return err
		}
		a.println(string(b))
	}
	return nil
}

func (a *App) showFile(item *models.SecureItem, exportDir string) error {
	p, ok := item.Payload.(map[string]any)
	if !ok {
		return fmt.Errorf("unexpected file payload %T", item.Payload)
	}
	name, _ := p["filename"].(string)
	encoded, _ := p["content"].(string)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode file content: %w", err)
	}

	a.printf("File:    %s (%d bytes)\n", name, len(data))
	if exportDir == "" {
		return nil
	}

	path, err := filex.WriteExport(exportDir, name, data)
	if err != nil {
		return err
	}
	a.printf("Saved to %s\n", path)
	return nil
}

// Update reads a new payload for an existing item and writes it if nobody
// changed the item in the meantime.
func (a *App) Update(ctx context.Context, id, filePath string) error {
	if err := a.ensureUnlocked(ctx); err != nil {
		return err
	}

	item, err := a.vault.Get(ctx, id)
	if err != nil {
		return err
	}

	payload, err := a.readPayload(item.Kind, filePath)
	if err != nil {
		return err
	}

	if err := a.vault.UpdateVersion(ctx, item.ID, item.Version, payload); err != nil {
		return err
	}
	a.printf("Updated %s\n", item.ID)
	return nil
}

// Delete removes an item. It does not need the passphrase.
func (a *App) Delete(ctx context.Context, id string) error {
	if err := a.vault.Delete(ctx, id); err != nil {
		return err
	}
	a.printf("Deleted %s\n", id)
	return nil
}

// Passwd re-encrypts the vault under a new passphrase.
func (a *App) Passwd(ctx context.Context) error {
	oldPass, err := getPassword("Current passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(oldPass)

	newPass, err := getPassword("New passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(newPass)

	repeat, err := getPassword("Repeat new passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(repeat)

	if string(newPass) != string(repeat) {
		return errPassphraseMismatch
	}

	if err := a.vault.ChangePassphrase(ctx, string(oldPass), string(newPass)); err != nil {
		return err
	}
	a.println("Passphrase changed")
	return nil
}
