package store

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"

	"github.com/sentineldb/sentinel/pkg/collection"
	"github.com/sentineldb/sentinel/pkg/crypto"
	"github.com/sentineldb/sentinel/pkg/sentinelerr"
	"github.com/sentineldb/sentinel/pkg/validate"
)

// signingKeyDocID is the id under the reserved .keys collection holding
// the encrypted signing key material.
const signingKeyDocID = "signing_key"

// signingKeyRecord is the document stored at .keys/signing_key.json:
// the Ed25519 public half in the clear, and the private half sealed
// behind a passphrase-derived key.
type signingKeyRecord struct {
	PublicKey           string `json:"public_key"`
	Salt                string `json:"salt"`
	EncryptedPrivateKey string `json:"encrypted_private_key"`
}

// PassphraseUnwrapper resolves the passphrase that gates the store's
// signing key. Open does not call it: Config.Passphrase takes the
// passphrase string directly, and the symmetric key that unseals the
// signing key is derived from that string and the stored salt.
// Passphrase collection and any interactive prompting are out of scope
// here.
type PassphraseUnwrapper interface {
	Unwrap(passphrase string) (string, error)
}

// StaticPassphrase is the trivial PassphraseUnwrapper: the passphrase is
// already in hand (e.g. from a flag or an environment variable).
type StaticPassphrase string

func (p StaticPassphrase) Unwrap(string) (string, error) { return string(p), nil }

// loadSigningKey opens (creating if absent) the reserved .keys
// collection and, if a passphrase is supplied, decrypts the stored
// signing key. Returns a nil signing key and nil verifying key when no
// key has been generated yet.
func (s *Store) loadSigningKey(passphrase string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	keys, err := s.openKeysCollection()
	if err != nil {
		return nil, nil, err
	}

	env, err := keys.Get(signingKeyDocID, s.unverifiedReadOpts())
	if err != nil {
		if sentinelerr.Is(err, sentinelerr.KindDocumentNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	var rec signingKeyRecord
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return nil, nil, sentinelerr.Wrap(sentinelerr.KindJSON, "store.loadSigningKey", err)
	}

	pub, err := hex.DecodeString(rec.PublicKey)
	if err != nil {
		return nil, nil, sentinelerr.Wrap(sentinelerr.KindStoreCorruption, "store.loadSigningKey", err)
	}

	if passphrase == "" {
		return nil, ed25519.PublicKey(pub), nil
	}

	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, nil, sentinelerr.Wrap(sentinelerr.KindStoreCorruption, "store.loadSigningKey", err)
	}
	kdfKey, err := crypto.DeriveKeyWithSalt(s.algos.KDF, passphrase, salt)
	if err != nil {
		return nil, nil, err
	}
	plain, err := crypto.Decrypt(s.algos.AEAD, rec.EncryptedPrivateKey, kdfKey)
	if err != nil {
		return nil, nil, err
	}

	return ed25519.PrivateKey(plain), ed25519.PublicKey(pub), nil
}

// GenerateSigningKey creates a fresh Ed25519 keypair, seals the private
// half under passphrase, and persists both halves to the reserved .keys
// collection, overwriting any previous key.
func (s *Store) GenerateSigningKey(passphrase string) (ed25519.PublicKey, error) {
	pub, priv, err := crypto.GenerateSigningKey()
	if err != nil {
		return nil, err
	}

	salt, kdfKey, err := crypto.DeriveKey(s.algos.KDF, passphrase)
	if err != nil {
		return nil, err
	}
	encrypted, err := crypto.Encrypt(s.algos.AEAD, priv, kdfKey)
	if err != nil {
		return nil, err
	}

	rec := signingKeyRecord{
		PublicKey:           hex.EncodeToString(pub),
		Salt:                hex.EncodeToString(salt),
		EncryptedPrivateKey: encrypted,
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return nil, sentinelerr.Wrap(sentinelerr.KindJSON, "store.GenerateSigningKey", err)
	}

	keys, err := s.openKeysCollection()
	if err != nil {
		return nil, err
	}
	if _, err := keys.Upsert(signingKeyDocID, buf); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.signingKey = priv
	s.verifyingKey = pub
	s.mu.Unlock()

	return pub, nil
}

// ImportSigningKey seals and persists a caller-supplied Ed25519 private
// key the same way GenerateSigningKey does for a freshly generated one,
// for `sentinel store init --signing-key <hex>` where the key material
// comes from outside the store (migrated from another store, or
// provisioned by an external secrets system).
func (s *Store) ImportSigningKey(passphrase string, priv ed25519.PrivateKey) error {
	if len(priv) != ed25519.PrivateKeySize {
		return sentinelerr.New(sentinelerr.KindConfigError, "store.ImportSigningKey")
	}
	pub := priv.Public().(ed25519.PublicKey)

	salt, kdfKey, err := crypto.DeriveKey(s.algos.KDF, passphrase)
	if err != nil {
		return err
	}
	encrypted, err := crypto.Encrypt(s.algos.AEAD, priv, kdfKey)
	if err != nil {
		return err
	}

	rec := signingKeyRecord{
		PublicKey:           hex.EncodeToString(pub),
		Salt:                hex.EncodeToString(salt),
		EncryptedPrivateKey: encrypted,
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return sentinelerr.Wrap(sentinelerr.KindJSON, "store.ImportSigningKey", err)
	}

	keys, err := s.openKeysCollection()
	if err != nil {
		return err
	}
	if _, err := keys.Upsert(signingKeyDocID, buf); err != nil {
		return err
	}

	s.mu.Lock()
	s.signingKey = priv
	s.verifyingKey = pub
	s.mu.Unlock()

	return nil
}

func (s *Store) openKeysCollection() (*collection.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[validate.KeysCollectionName]; ok {
		return c, nil
	}
	c, err := collection.Open(s.collectionDir(validate.KeysCollectionName), validate.KeysCollectionName, collection.Options{
		Algorithms: s.algos,
		WALConfig:  s.md.snapshot().WALConfig,
	})
	if err != nil {
		return nil, err
	}
	s.collections[validate.KeysCollectionName] = c
	return c, nil
}
