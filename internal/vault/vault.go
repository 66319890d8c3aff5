package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/keymgr"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
	"github.com/google/uuid"
)

// Vault is an encrypted item store. Construct it with New; the zero value is
// not usable.
type Vault struct {
	store   repomanager.Manager
	keys    *keymgr.Manager
	deriver keymgr.Deriver
	minLen  int
	log     logging.Logger
	clock   func() time.Time
	newID   func() string
}

// New returns a locked vault backed by store.
func New(store repomanager.Manager, opts ...Option) *Vault {
	v := &Vault{
		store:   store,
		deriver: keymgr.SHA256Deriver{},
		log:     logging.Nop(),
		clock:   time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.keys = keymgr.New(
		keymgr.WithDeriver(v.deriver),
		keymgr.WithMinPassphraseLength(v.minLen),
	)
	return v
}

// now returns wall-clock UTC time without a monotonic reading, so values
// compare equal after a storage round trip.
func (v *Vault) now() time.Time {
	return v.clock().UTC().Round(0)
}

// storageErr passes through not-found and conflict errors and marks any
// other repository failure with common.ErrStorage.
func (v *Vault) storageErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrNotFound) || errors.Is(err, common.ErrConflict) {
		return err
	}
	v.log.Error(ctx, "storage failure", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %w", op, common.ErrStorage, err)
}

// Unlock derives the session key from passphrase. The passphrase is not
// verified: a wrong one surfaces later as common.ErrDecryption.
func (v *Vault) Unlock(ctx context.Context, passphrase string) error {
	d, err := v.resolveDeriver(ctx)
	if err != nil {
		return err
	}
	v.keys.SetDeriver(d)
	if err := v.keys.SetKey(passphrase); err != nil {
		return err
	}
	v.log.Info(ctx, "vault unlocked", "kdf", d.Name())
	return nil
}

// Lock discards the session key.
func (v *Vault) Lock() {
	v.keys.ClearKey()
	v.log.Info(context.Background(), "vault locked")
}

// IsUnlocked reports whether a session key is active.
func (v *Vault) IsUnlocked() bool {
	return v.keys.HasKey()
}

// Add encrypts payload and stores a new item. tags may be empty.
func (v *Vault) Add(ctx context.Context, name string, kind models.Kind, payload any, tags ...string) (*models.SecureItem, error) {
	if _, err := models.ParseKind(string(kind)); err != nil {
		return nil, err
	}

	var item *models.SecureItem
	err := v.keys.WithKey(func(key []byte) error {
		ct, err := cryptox.Encrypt(payload, key)
		if err != nil {
			return fmt.Errorf("encrypt payload: %w", err)
		}

		ts := v.now()
		rec := &models.Record{
			ItemMeta: models.ItemMeta{
				ID:             v.newID(),
				Name:           name,
				Kind:           kind,
				Tags:           cloneTags(tags),
				CreatedAt:      ts,
				LastAccessedAt: ts,
				Version:        1,
			},
			Payload: ct,
		}
		if err := v.store.Repositories().Items.Insert(ctx, rec); err != nil {
			return v.storageErr(ctx, "add item", err)
		}

		item = &models.SecureItem{ItemMeta: rec.Meta(), Payload: payload}
		return nil
	})
	if err != nil {
		return nil, err
	}

	v.log.Info(ctx, "item added", "id", item.ID, "kind", item.Kind)
	return item, nil
}

// Get returns the item with its payload decrypted and records the access.
func (v *Vault) Get(ctx context.Context, id string) (*models.SecureItem, error) {
	var item *models.SecureItem
	err := v.keys.WithKey(func(key []byte) error {
		items := v.store.Repositories().Items

		rec, err := items.GetByID(ctx, id)
		if err != nil {
			return v.storageErr(ctx, "get item", err)
		}

		payload, err := cryptox.DecryptValue(rec.Payload, key)
		if err != nil {
			v.log.Warn(ctx, "payload does not decrypt under the active key", "id", id)
			return err
		}

		ts := v.now()
		if err := items.Touch(ctx, id, ts); err != nil {
			return v.storageErr(ctx, "touch item", err)
		}

		item = &models.SecureItem{ItemMeta: rec.Meta(), Payload: payload}
		item.LastAccessedAt = ts
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Update replaces the payload of an existing item. It fails with
// common.ErrConflict if the item changed between the read and the write.
func (v *Vault) Update(ctx context.Context, id string, payload any) error {
	return v.keys.WithKey(func(key []byte) error {
		rec, err := v.store.Repositories().Items.GetByID(ctx, id)
		if err != nil {
			return v.storageErr(ctx, "update item", err)
		}
		return v.write(ctx, key, id, rec.Version, payload)
	})
}

// UpdateVersion replaces the payload only if the stored version equals
// expectedVersion; otherwise it returns common.ErrConflict.
func (v *Vault) UpdateVersion(ctx context.Context, id string, expectedVersion int64, payload any) error {
	return v.keys.WithKey(func(key []byte) error {
		return v.write(ctx, key, id, expectedVersion, payload)
	})
}

func (v *Vault) write(ctx context.Context, key []byte, id string, version int64, payload any) error {
	ct, err := cryptox.Encrypt(payload, key)
	if err != nil {
		return fmt.Errorf("encrypt payload: %w", err)
	}
	if err := v.store.Repositories().Items.UpdatePayload(ctx, id, version, ct, v.now()); err != nil {
		return v.storageErr(ctx, "update item", err)
	}
	v.log.Info(ctx, "item updated", "id", id, "version", version+1)
	return nil
}

// Delete removes the item. Deleting a missing id is not an error and no key
// is required.
func (v *Vault) Delete(ctx context.Context, id string) error {
	if err := v.store.Repositories().Items.DeleteByID(ctx, id); err != nil {
		return v.storageErr(ctx, "delete item", err)
	}
	v.log.Info(ctx, "item deleted", "id", id)
	return nil
}

// List returns the metadata of every item ordered by creation time. It works
// while locked and never decrypts anything.
func (v *Vault) List(ctx context.Context) ([]models.ItemMeta, error) {
	metas, err := v.store.Repositories().Items.GetAll(ctx)
	if err != nil {
		return nil, v.storageErr(ctx, "list items", err)
	}
	return metas, nil
}

// ChangePassphrase re-encrypts every payload under a key derived from
// newPassphrase. All payloads must decrypt under oldPassphrase; otherwise
// nothing is written and common.ErrDecryption is returned. On success the
// vault is unlocked with the new key.
func (v *Vault) ChangePassphrase(ctx context.Context, oldPassphrase, newPassphrase string) error {
	oldDeriver, err := v.resolveDeriver(ctx)
	if err != nil {
		return err
	}

	newDeriver := oldDeriver
	if _, ok := oldDeriver.(keymgr.Argon2Deriver); ok {
		newDeriver = keymgr.Argon2Deriver{Salt: common.GenerateRandByteArray(cryptox.SaltSize)}
	}

	oldKeys := keymgr.New(keymgr.WithDeriver(oldDeriver))
	if err := oldKeys.SetKey(oldPassphrase); err != nil {
		return err
	}
	newKeys := keymgr.New(keymgr.WithDeriver(newDeriver), keymgr.WithMinPassphraseLength(v.minLen))
	if err := newKeys.SetKey(newPassphrase); err != nil {
		return err
	}

	var n int
	err = oldKeys.WithKey(func(oldKey []byte) error {
		return newKeys.WithKey(func(newKey []byte) error {
			return v.store.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
				recs, err := repos.Items.GetAllRecords(ctx)
				if err != nil {
					return v.storageErr(ctx, "read items", err)
				}
				for _, rec := range recs {
					payload, err := cryptox.DecryptValue(rec.Payload, oldKey)
					if err != nil {
						return fmt.Errorf("item %s: %w", rec.ID, err)
					}
					ct, err := cryptox.Encrypt(payload, newKey)
					if err != nil {
						return fmt.Errorf("encrypt payload: %w", err)
					}
					if err := repos.Items.UpdatePayload(ctx, rec.ID, rec.Version, ct, rec.LastAccessedAt); err != nil {
						return v.storageErr(ctx, "re-encrypt item", err)
					}
				}
				n = len(recs)
				return v.saveKDF(ctx, repos, newDeriver)
			})
		})
	})
	if err != nil {
		return err
	}

	v.keys.SetDeriver(newDeriver)
	if err := v.keys.SetKey(newPassphrase); err != nil {
		return err
	}
	v.log.Info(ctx, "passphrase changed", "items", n, "kdf", newDeriver.Name())
	return nil
}

func cloneTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	return append([]string(nil), tags...)
}
