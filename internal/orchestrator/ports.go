package orchestrator

import "sync"

// PortAllocator hands out unique remote-debugging ports. One allocator is
// owned by the orchestrator and shared by every worker; the lock is held
// only for the read-increment span, so no two live sessions ever share a
// port.
type PortAllocator struct {
	mu   sync.Mutex
	next int
}

// NewPortAllocator starts allocation at base.
func NewPortAllocator(base int) *PortAllocator {
	return &PortAllocator{next: base}
}

// Next returns the next unused port.
func (p *PortAllocator) Next() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	port := p.next
	p.next++
	return port
}
