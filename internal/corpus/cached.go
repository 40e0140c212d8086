package corpus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// CachedLoader keeps the first successful load for the life of the process.
// Refresh swaps in a new copy; readers holding the old one are unaffected.
type CachedLoader struct {
	next    Loader
	mu      sync.Mutex
	current atomic.Pointer[Corpus]
}

func NewCachedLoader(next Loader) *CachedLoader {
	return &CachedLoader{next: next}
}

func (l *CachedLoader) Load(ctx context.Context) (*Corpus, error) {
	if c := l.current.Load(); c != nil {
		return c, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if c := l.current.Load(); c != nil {
		return c, nil
	}
	c, err := l.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	l.current.Store(c)
	logutil.GetLogger(ctx).Info("corpus loaded", zap.Int("sections", len(c.Sections)), zap.Int("dim", c.Dim))
	return c, nil
}

// Refresh reloads the corpus. On failure the previous copy stays in place.
func (l *CachedLoader) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, err := l.next.Load(ctx)
	if err != nil {
		return err
	}
	l.current.Store(c)
	logutil.GetLogger(ctx).Info("corpus refreshed", zap.Int("sections", len(c.Sections)), zap.Int("dim", c.Dim))
	return nil
}
