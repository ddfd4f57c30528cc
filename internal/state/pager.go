package state

import (
	"sync"

	"events-assistant/internal/domain"
)

// DefaultPageSize is the number of locations shown per page.
const DefaultPageSize = 4

// Pager is a windowed view over a list of locations. The offset is always a
// multiple of the page size and never past the start of the last page.
type Pager struct {
	mu       sync.RWMutex
	pageSize int
	offset   int
	list     []domain.Location
}

// NewPager returns an empty pager. A non-positive pageSize uses
// DefaultPageSize.
func NewPager(pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{pageSize: pageSize}
}

// Reset replaces the list and rewinds to the first page.
func (p *Pager) Reset(list []domain.Location) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.list = domain.CloneLocations(list)
	p.offset = 0
}

// Next advances one page and reports whether the offset moved.
func (p *Pager) Next() bool {
	return p.move(1)
}

// Previous goes back one page and reports whether the offset moved.
func (p *Pager) Previous() bool {
	return p.move(-1)
}

func (p *Pager) move(dir int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.offset + dir*p.pageSize
	if next < 0 {
		next = 0
	}
	if last := p.lastPageStartLocked(); next > last {
		next = last
	}
	moved := next != p.offset
	p.offset = next
	return moved
}

// Visible returns the current page. The last page may be short.
func (p *Pager) Visible() []domain.Location {
	p.mu.RLock()
	defer p.mu.RUnlock()
	end := p.offset + p.pageSize
	if end > len(p.list) {
		end = len(p.list)
	}
	return domain.CloneLocations(p.list[p.offset:end])
}

func (p *Pager) Offset() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offset
}

func (p *Pager) PageSize() int {
	return p.pageSize
}

func (p *Pager) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.list)
}

func (p *Pager) HasNext() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offset < p.lastPageStartLocked()
}

func (p *Pager) HasPrevious() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offset > 0
}

func (p *Pager) lastPageStartLocked() int {
	if len(p.list) == 0 {
		return 0
	}
	return ((len(p.list) - 1) / p.pageSize) * p.pageSize
}
