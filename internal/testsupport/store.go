package testsupport

import (
	"testing"

	"subtrans/internal/config"
	"subtrans/internal/transcache"
)

// MustOpenCache opens the translation memory for cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *transcache.Store {
	t.Helper()

	store, err := transcache.OpenForConfig(cfg)
	if err != nil {
		t.Fatalf("transcache.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
