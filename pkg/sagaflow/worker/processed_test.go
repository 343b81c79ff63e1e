package worker_test

import (
	"sync"
	"testing"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/worker"
	"github.com/stretchr/testify/assert"
)

func TestProcessedSetMarkAndCheck(t *testing.T) {
	p := worker.NewProcessedSet()

	assert.False(t, p.IsProcessed("id-1"))
	p.MarkProcessed("id-1")
	assert.True(t, p.IsProcessed("id-1"))
	assert.False(t, p.IsProcessed("id-2"))
}

func TestProcessedSetConcurrentAccess(t *testing.T) {
	p := worker.NewProcessedSet()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.MarkProcessed("shared-id")
			p.IsProcessed("shared-id")
		}()
	}
	wg.Wait()

	assert.True(t, p.IsProcessed("shared-id"))
}
