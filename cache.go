package jetdb

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

type cachedPage struct {
	data       []byte
	compressed bool
}

// pageCache keeps recently read pages, optionally compressed, keyed by page
// number. It is shared by every Pager of one DB and is safe for concurrent use.
type pageCache struct {
	lru        *lru.Cache[uint32, cachedPage]
	compress   Compressor
	decompress DeCompressor
}

func newPageCache(size int, alg CompressAlgorithm) (*pageCache, error) {
	l, err := lru.New[uint32, cachedPage](size)
	if err != nil {
		return nil, errors.Wrap(err, "page cache")
	}
	c := &pageCache{lru: l}
	c.compress, c.decompress = codecFor(alg)
	return c, nil
}

// get copies page n into dst. It reports false on a miss or when the cached
// copy cannot be restored to exactly len(dst) bytes.
func (c *pageCache) get(n uint32, dst []byte) bool {
	p, ok := c.lru.Get(n)
	if !ok {
		return false
	}
	data := p.data
	if p.compressed {
		var err error
		if data, err = c.decompress(data); err != nil {
			c.lru.Remove(n)
			return false
		}
	}
	if len(data) != len(dst) {
		c.lru.Remove(n)
		return false
	}
	copy(dst, data)
	return true
}

func (c *pageCache) put(n uint32, pg []byte) {
	if c.compress != nil {
		if z := c.compress(pg); z != nil && len(z) < len(pg) {
			c.lru.Add(n, cachedPage{data: z, compressed: true})
			return
		}
	}
	c.lru.Add(n, cachedPage{data: append([]byte(nil), pg...)})
}

func (c *pageCache) len() int {
	return c.lru.Len()
}
