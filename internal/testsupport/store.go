package testsupport

import (
	"testing"

	"clipsight/internal/analysiscache"
	"clipsight/internal/config"
)

// MustOpenCache opens an analysiscache.Store for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *analysiscache.Store {
	t.Helper()

	store, err := analysiscache.Open(cfg)
	if err != nil {
		t.Fatalf("analysiscache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
