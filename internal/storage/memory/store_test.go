package memory

import (
	"testing"

	"github.com/julianstephens/streakd/internal/storage"
	"github.com/julianstephens/streakd/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Provider {
		return New()
	})
}
