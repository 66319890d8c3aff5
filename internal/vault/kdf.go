package vault

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/keymgr"
	"github.com/dmitrijs2005/gophvault/internal/repositories/metadata"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
)

// resolveDeriver returns the key derivation function recorded for this vault,
// recording the configured one if the vault has none yet.
func (v *Vault) resolveDeriver(ctx context.Context) (keymgr.Deriver, error) {
	meta, err := v.store.Repositories().Metadata.List(ctx)
	if err != nil {
		return nil, v.storageErr(ctx, "read kdf", err)
	}
	name, ok := meta[metadata.KeyKDF]
	if !ok {
		return v.initKDF(ctx)
	}

	salt := meta[metadata.KeyKDFSalt]
	if string(name) == keymgr.KDFArgon2ID && len(salt) == 0 {
		return nil, fmt.Errorf("%w: kdf salt is missing", common.ErrStorage)
	}

	d, err := keymgr.NewDeriver(string(name), salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorage, err)
	}
	if d.Name() != v.deriver.Name() {
		v.log.Warn(ctx, "configured kdf differs from the one recorded in the vault; using the recorded one",
			"configured", v.deriver.Name(), "recorded", d.Name())
	}
	return d, nil
}

func (v *Vault) initKDF(ctx context.Context) (keymgr.Deriver, error) {
	d := v.deriver
	if a, ok := d.(keymgr.Argon2Deriver); ok && len(a.Salt) == 0 {
		d = keymgr.Argon2Deriver{Salt: common.GenerateRandByteArray(cryptox.SaltSize)}
	}

	err := v.store.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		return v.saveKDF(ctx, repos, d)
	})
	if err != nil {
		return nil, err
	}
	v.log.Info(ctx, "kdf initialised", "kdf", d.Name())
	return d, nil
}

func (v *Vault) saveKDF(ctx context.Context, repos repomanager.Repositories, d keymgr.Deriver) error {
	if err := repos.Metadata.Set(ctx, metadata.KeyKDF, []byte(d.Name())); err != nil {
		return v.storageErr(ctx, "save kdf", err)
	}
	if a, ok := d.(keymgr.Argon2Deriver); ok {
		if err := repos.Metadata.Set(ctx, metadata.KeyKDFSalt, a.Salt); err != nil {
			return v.storageErr(ctx, "save kdf salt", err)
		}
		return nil
	}
	if err := repos.Metadata.Delete(ctx, metadata.KeyKDFSalt); err != nil {
		return v.storageErr(ctx, "clear kdf salt", err)
	}
	return nil
}
