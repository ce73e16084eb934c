package relay

import "sync"

// PendingTable maps an admin to the user they will reply to next.
type PendingTable struct {
	mu      sync.Mutex
	targets map[int64]int64
}

func NewPendingTable() *PendingTable {
	return &PendingTable{targets: make(map[int64]int64)}
}

// Set overwrites any previous target for admin.
func (p *PendingTable) Set(admin, target int64) {
	p.mu.Lock()
	p.targets[admin] = target
	p.mu.Unlock()
}

// Consume returns and removes the pending target for admin.
func (p *PendingTable) Consume(admin int64) (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	target, ok := p.targets[admin]
	if ok {
		delete(p.targets, admin)
	}
	return target, ok
}

func (p *PendingTable) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.targets)
}
