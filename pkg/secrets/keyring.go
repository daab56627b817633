// Package secrets stores the LLM API key in the operating system keyring
// so it never has to live in config files or shell history.
package secrets

import (
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

const (
	serviceName = "parley"
	apiKeyItem  = "llm_api_key"
)

// Store wraps the OS keyring entry that holds parley's LLM API key.
type Store struct {
	ring keyring.Keyring
}

// Open opens the parley keyring, picking whatever backend the platform
// provides.
func Open() (*Store, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

// SetAPIKey stores or replaces the LLM API key.
func (s *Store) SetAPIKey(key string) error {
	return s.ring.Set(keyring.Item{
		Key:   apiKeyItem,
		Label: "parley LLM API key",
		Data:  []byte(key),
	})
}

// APIKey returns the stored key, or "" when none is stored.
func (s *Store) APIKey() (string, error) {
	item, err := s.ring.Get(apiKeyItem)
	if err != nil {
		if err == keyring.ErrKeyNotFound {
			return "", nil
		}
		return "", fmt.Errorf("read keyring: %w", err)
	}
	return string(item.Data), nil
}

// DeleteAPIKey removes the stored key. A missing key is not an error.
func (s *Store) DeleteAPIKey() error {
	if err := s.ring.Remove(apiKeyItem); err != nil && err != keyring.ErrKeyNotFound {
		return fmt.Errorf("remove keyring item: %w", err)
	}
	return nil
}

// LookupAPIKey resolves the key for a provider: explicit config first, then
// the environment, then the keyring. Empty means nothing was found.
func LookupAPIKey(configured, provider string) string {
	if configured != "" {
		return configured
	}

	names := []string{"PARLEY_LLM_API_KEY"}
	switch provider {
	case "openai":
		names = append(names, "OPENAI_API_KEY")
	default:
		names = append(names, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}

	store, err := Open()
	if err != nil {
		return ""
	}
	key, err := store.APIKey()
	if err != nil {
		return ""
	}
	return key
}
