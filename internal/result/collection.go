package result

import "sync"

// Collection is a run's append-only result set. Append is safe for
// concurrent use; readers get copies.
type Collection struct {
	mu      sync.Mutex
	results []EvaluationResult
}

func NewCollection() *Collection {
	return &Collection{}
}

func (c *Collection) Append(r EvaluationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// Results returns the results in append order.
func (c *Collection) Results() []EvaluationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EvaluationResult, len(c.results))
	copy(out, c.results)
	return out
}
