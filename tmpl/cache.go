package tmpl

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/curly/log"
)

// CacheSize is the number of parsed trees kept between renders. The least
// recently used tree is evicted first.
const CacheSize = 1024

var parseCache = newTreeCache(CacheSize) //nolint:gochecknoglobals

// treeCache is a bounded set of parsed trees safe for concurrent use.
type treeCache struct {
	mu  sync.Mutex
	lru *lru.Cache
}

func newTreeCache(size int) *treeCache {
	return &treeCache{lru: lru.New(size)}
}

// entry holds the nodes of one source, parsed at most once.
type entry struct {
	once        sync.Once
	open, close string
	src         string
	nodes       []Node
}

func (e *entry) matches(src, open, close string) bool {
	return e.open == open && e.close == close && e.src == src
}

// treeKey hashes the delimiters and source as one length-prefixed stream,
// so that no two configurations share an input.
func treeKey(src, open, close string) xxh3.Uint128 {
	h := xxh3.New()

	var n [binary.MaxVarintLen64]byte

	for _, s := range []string{open, close} {
		_, _ = h.Write(n[:binary.PutUvarint(n[:], uint64(len(s)))])
		_, _ = h.WriteString(s)
	}

	_, _ = h.WriteString(src)

	return h.Sum128()
}

// lookup returns the entry of src, adding an empty one if none is cached.
func (c *treeCache) lookup(key xxh3.Uint128, src, open, close string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.lru.Get(key); ok {
		if e, ok := v.(*entry); ok && e.matches(src, open, close) {
			return e, true
		}
	}

	e := &entry{open: open, close: close, src: src}
	c.lru.Add(key, e)

	return e, false
}

func (c *treeCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Len()
}

func (c *treeCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Clear()
}

// parse returns the template tree of src, parsing it on first use. Parsed
// trees are immutable and shared between renders.
func (c *treeCache) parse(
	ctx context.Context,
	name, src, open, close string,
	logger log.Logger,
) *Template {
	key := treeKey(src, open, close)
	e, hit := c.lookup(key, src, open, close)

	if logger.Allows(ctx, log.LevelTrace) {
		logger.TraceContext(ctx, "cache lookup",
			slog.String("template", name),
			slog.String("key", fmt.Sprintf("%016x%016x", key.Hi, key.Lo)),
			slog.Bool("cache_hit", hit),
		)
	}

	e.once.Do(func() {
		e.nodes = parse(ctx, name, src, open, close, logger).Nodes
	})

	return &Template{Name: name, Nodes: e.nodes}
}

// parseCached parses src through the shared tree cache.
func parseCached(
	ctx context.Context,
	name, src, open, close string,
	logger log.Logger,
) *Template {
	return parseCache.parse(ctx, name, src, open, close, logger)
}

// ClearCache removes all cached template trees.
func ClearCache() {
	parseCache.clear()
}
