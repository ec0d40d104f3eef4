package testsupport

import (
	"context"
	"testing"

	"ncanimate/internal/config"
	"ncanimate/internal/metadata"
)

// MustOpenStore opens the metadata store of cfg for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *metadata.Store {
	t.Helper()

	store, err := metadata.Open(cfg.Paths.Database)
	if err != nil {
		t.Fatalf("metadata.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SaveInputs stores input files, failing the test on error.
func SaveInputs(t testing.TB, store *metadata.Store, files ...metadata.InputFile) {
	t.Helper()

	for _, file := range files {
		if err := store.SaveInputFile(context.Background(), file); err != nil {
			t.Fatalf("store.SaveInputFile(%s): %v", file.ID, err)
		}
	}
}

// SaveTask stores a generation task, failing the test on error.
func SaveTask(t testing.TB, store *metadata.Store, task metadata.Task) {
	t.Helper()

	if err := store.SaveTask(context.Background(), task); err != nil {
		t.Fatalf("store.SaveTask(%s): %v", task.ID, err)
	}
}
