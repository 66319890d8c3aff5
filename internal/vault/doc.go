// Package vault is the item store: it encrypts item payloads with the
// session key held by a keymgr.Manager and persists them through a
// repomanager.Manager.
//
// Metadata (name, kind, tags, timestamps) is stored in plaintext so List and
// Search work while the vault is locked. Payload-touching operations return
// common.ErrLocked until Unlock succeeds.
//
// Typical use:
//
//	repos, _ := repomanager.Open(ctx, repomanager.DriverSQLite, "vault.db", time.Second)
//	v := vault.New(repos, vault.WithLogger(log))
//	_ = v.Unlock(ctx, passphrase)
//	item, _ := v.Add(ctx, "github", models.KindPassword, "p@ss1", "work")
package vault
