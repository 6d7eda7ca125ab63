package httpserver

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenStoreConsumeOnce(t *testing.T) {
	store := NewTokenStore()
	token := store.Issue(sampleRecord())

	const workers = 16
	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := store.Consume(token); ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, accepted.Load())
	assert.Zero(t, store.Pending())
}

func TestTokenStoreDistinctTokens(t *testing.T) {
	store := NewTokenStore()
	a := store.Issue(sampleRecord())
	b := store.Issue(sampleRecord())

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, store.Pending())
}
