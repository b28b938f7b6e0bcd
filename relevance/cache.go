package relevance

// Cache memoizes query results for the lifetime of one processing pass. The
// owner resets it whenever the underlying corpus changes.
type Cache struct {
	entries map[string]Result
}

// NewCache returns an empty cache.
func NewCache() *Cache { return &Cache{entries: map[string]Result{}} }

// Get returns a copy of the cached result for key.
func (c *Cache) Get(key string) (Result, bool) {
	res, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	res.Items = append(make([]Item, 0, len(res.Items)), res.Items...)
	return res, true
}

// Put stores a copy of res under key.
func (c *Cache) Put(key string, res Result) {
	res.Items = append(make([]Item, 0, len(res.Items)), res.Items...)
	c.entries[key] = res
}

// Len returns the number of cached results.
func (c *Cache) Len() int { return len(c.entries) }

// Reset drops every cached result.
func (c *Cache) Reset() { c.entries = map[string]Result{} }
