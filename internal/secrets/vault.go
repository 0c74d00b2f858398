// Package secrets holds credentials that can be rotated without a restart.
package secrets

import (
	"fmt"
	"sort"
	"sync"
)

// Keys of the credentials the service rotates.
const (
	FreshdeskAPIKey = "FRESHDESK_API_KEY"
	SMTPPassword    = "AGENTSHIFT_SMTP_PASSWORD"
)

// Loader retrieves the current secret values.
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{values: vals, loader: loader}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Source returns a getter that always reads the current value of key.
func (v *Vault) Source(key string) func() string {
	return func() string { return v.Get(key) }
}

// Reload calls the loader and swaps in the new values atomically. It
// returns the sorted names of the keys whose value changed. If the loader
// fails, existing values are preserved.
func (v *Vault) Reload() ([]string, error) {
	next, err := v.loader()
	if err != nil {
		return nil, fmt.Errorf("reload secrets: %w", err)
	}

	v.mu.Lock()
	prev := v.values
	v.values = next
	v.mu.Unlock()

	var changed []string
	for k, val := range next {
		if prev[k] != val {
			changed = append(changed, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed, nil
}
