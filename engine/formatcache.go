package engine

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// formatCache memoizes Format.Concretize results keyed by the abstract
// format's name plus the resolved dynamic lengths, the way
// kryptco-kr's krd/ssh_agent.go keys hostAuthCallbacksBySessionID
// off a derived session string. A task that runs once per connection
// tick (the common case — see SPEC_FULL.md's format-cache entry)
// concretizes the same abstract shape with the same lengths repeatedly;
// caching avoids rebuilding the offset table each time.
type formatCache struct {
	mu    sync.Mutex
	cache *lru.Cache
}

const formatCacheSize = 256

func newFormatCache() *formatCache {
	c, err := lru.New(formatCacheSize)
	if err != nil {
		// lru.New only errors on a non-positive size, which
		// formatCacheSize never is.
		panic(err)
	}
	return &formatCache{cache: c}
}

func formatCacheKey(name Identifier, lens []DynLen) string {
	sorted := append([]DynLen(nil), lens...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	b.WriteString(string(name))
	for _, l := range sorted {
		fmt.Fprintf(&b, "|%s=%d", l.ID, l.Len)
	}
	return b.String()
}

func (c *formatCache) concretize(abstract Format, lens []DynLen) (ConcreteFormat, error) {
	key := formatCacheKey(abstract.Name, lens)

	c.mu.Lock()
	if cached, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return cached.(ConcreteFormat), nil
	}
	c.mu.Unlock()

	cf, err := abstract.Concretize(lens)
	if err != nil {
		return ConcreteFormat{}, err
	}

	c.mu.Lock()
	c.cache.Add(key, cf)
	c.mu.Unlock()

	return cf, nil
}
