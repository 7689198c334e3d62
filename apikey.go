package folio

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// apiKeyPrefixLen is how many characters of the plaintext key are stored
// for display in the admin key list.
const apiKeyPrefixLen = 8

// HashAPIKey returns the hex SHA-256 digest of a plaintext key. Keys are
// high-entropy random values, so an unsalted fast hash is the right
// trade-off: lookups stay a single indexed query and brute force is
// infeasible against 256 bits of randomness.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// MintAPIKey generates a new API key, stores only its digest and display
// prefix, and returns the plaintext exactly once. It is never recoverable
// afterwards.
func (s *Store) MintAPIKey(name string) (plaintext string, key APIKey, err error) {
	raw := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	plaintext = "fk_" + raw
	key = APIKey{
		Name:      strings.TrimSpace(name),
		Prefix:    plaintext[:apiKeyPrefixLen],
		KeyHash:   HashAPIKey(plaintext),
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.db.Exec(`INSERT INTO api_keys (name, prefix, key_hash, created_at) VALUES (?, ?, ?, ?)`,
		key.Name, key.Prefix, key.KeyHash, key.CreatedAt)
	if err != nil {
		return "", APIKey{}, err
	}
	key.ID, err = res.LastInsertId()
	if err != nil {
		return "", APIKey{}, err
	}
	return plaintext, key, nil
}

// LookupAPIKey returns the stored key matching the plaintext, or ErrNotFound.
func (s *Store) LookupAPIKey(plaintext string) (APIKey, error) {
	var k APIKey
	var lastUsed sql.NullTime
	err := s.db.QueryRow(`SELECT id, name, prefix, key_hash, created_at, last_used_at FROM api_keys WHERE key_hash = ?`,
		HashAPIKey(plaintext)).Scan(&k.ID, &k.Name, &k.Prefix, &k.KeyHash, &k.CreatedAt, &lastUsed)
	if err != nil {
		return APIKey{}, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsedAt = &t
	}
	return k, nil
}

// TouchAPIKey records that the key was just used.
func (s *Store) TouchAPIKey(id int64) error {
	_, err := s.db.Exec(`UPDATE api_keys SET last_used_at = ? WHERE id = ?`, time.Now().UTC(), id)
	return err
}

// ListAPIKeys returns all key metadata, newest first. Plaintext is never stored.
func (s *Store) ListAPIKeys() ([]APIKey, error) {
	rows, err := s.db.Query(`SELECT id, name, prefix, key_hash, created_at, last_used_at FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []APIKey
	for rows.Next() {
		var k APIKey
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Name, &k.Prefix, &k.KeyHash, &k.CreatedAt, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			t := lastUsed.Time
			k.LastUsedAt = &t
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RevokeAPIKey deletes a key. Requests bearing it fail from the next lookup on.
func (s *Store) RevokeAPIKey(id int64) error {
	_, err := s.db.Exec(`DELETE FROM api_keys WHERE id = ?`, id)
	return err
}
