package system

import (
	"fmt"
	"sync"

	"github.com/ivlev/toyscene/internal/tensor"
)

// ArrayPool предоставляет повторное использование буферов tensor.Array,
// сгруппированных по форме, для снижения нагрузки на Garbage Collector (GC).
// Безопасен для конкурентного использования: параллельные сцены делят один пул.
type ArrayPool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

func NewArrayPool() *ArrayPool {
	return &ArrayPool{pools: make(map[string]*sync.Pool)}
}

func shapeKey(w, h, c int) string {
	return fmt.Sprintf("%dx%dx%d", w, h, c)
}

// Get возвращает массив w x h x c из пула. Содержимое не определено.
func (p *ArrayPool) Get(w, h, c int) *tensor.Array {
	key := shapeKey(w, h, c)
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return tensor.New(w, h, c)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*tensor.Array)
}

// Put возвращает массив в пул. Массивы незнакомой формы отбрасываются.
func (p *ArrayPool) Put(a *tensor.Array) {
	if a == nil {
		return
	}
	key := shapeKey(a.W, a.H, a.C)
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(a)
	}
}
