package testutil

import (
	"testing"

	"github.com/mbeaufort/pitchrally/internal/repository"
)

// NewTestRepository creates an in-memory repository for testing.
// The database is migrated and closed automatically when the test ends.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}
