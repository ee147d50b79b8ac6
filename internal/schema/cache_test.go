package schema

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheCRUD(t *testing.T) {
	c := NewCache()
	assert.False(t, c.Contains("document"))

	c.Put(&Schema{Name: "document"})
	assert.True(t, c.Contains("document"))
	assert.Equal(t, 1, c.Size())
	assert.NotNil(t, c.Get("document"))

	c.Remove("document")
	assert.False(t, c.Contains("document"))
	assert.Nil(t, c.Get("document"))
}

func TestCacheClearAndEnumerate(t *testing.T) {
	c := NewCache()
	c.Put(&Schema{Name: "a"})
	c.Put(&Schema{Name: "b"})
	assert.ElementsMatch(t, []string{"a", "b"}, c.EntityNames())
	assert.Len(t, c.All(), 2)

	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Put(&Schema{Name: "s"})
			c.Contains("s")
			c.Get("s")
		}(i)
	}
	wg.Wait()
	assert.True(t, c.Contains("s"))
}
