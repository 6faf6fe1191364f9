package core_test

import (
	"context"
	"sync"
	"testing"

	"erp-ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentService_ConcurrentNumbering(t *testing.T) {
	pool := setupTestDB(t) // Skips if TEST_DATABASE_URL is not set
	defer pool.Close()

	docs := core.NewDocumentService()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
	)
	errCh := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := pool.Begin(ctx)
			if err != nil {
				errCh <- err
				return
			}
			defer tx.Rollback(ctx)
			n, err := docs.NextNumberTx(ctx, tx, "INV", 2026)
			if err != nil {
				errCh <- err
				return
			}
			if err := tx.Commit(ctx); err != nil {
				errCh <- err
				return
			}
			mu.Lock()
			numbers[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Errorf("concurrent numbering error: %v", err)
	}

	assert.Len(t, numbers, 10)
	assert.True(t, numbers["INV-2026-00001"])
	assert.True(t, numbers["INV-2026-00010"])
}

func TestDocumentService_RollbackLeavesNoGap(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	docs := core.NewDocumentService()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	n, err := docs.NextNumberTx(ctx, tx, "INV", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", n)
	require.NoError(t, tx.Rollback(ctx))

	tx, err = pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	n, err = docs.NextNumberTx(ctx, tx, "INV", 2026)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", n)

	// Years are numbered independently.
	n, err = docs.NextNumberTx(ctx, tx, "INV", 2027)
	require.NoError(t, err)
	assert.Equal(t, "INV-2027-00001", n)
	require.NoError(t, tx.Commit(ctx))
}
