// Package presentation provides building blocks for presentation packages and a headless
// implementation that renders steps as text.
package presentation

import (
	"sync"
)

// PageMonitor tracks the current page of a container and notifies observers of changes.
type PageMonitor struct {
	mu        sync.Mutex
	current   int
	observers []pageObserver
	nextID    int
}

type pageObserver struct {
	id int
	fn func(from, to int)
}

// NewPageMonitor creates a monitor positioned on page.
func NewPageMonitor(page int) *PageMonitor {
	return &PageMonitor{current: page}
}

// CurrentPage returns the current page.
func (p *PageMonitor) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// AddObserver registers fn and returns a function that removes it.
func (p *PageMonitor) AddObserver(fn func(from, to int)) (remove func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.observers = append(p.observers, pageObserver{id: id, fn: fn})
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		for i, o := range p.observers {
			if o.id == id {
				p.observers = append(p.observers[:i:i], p.observers[i+1:]...)
				return
			}
		}
	}
}

// Set moves to page and notifies observers when it changed.
func (p *PageMonitor) Set(page int) {
	p.mu.Lock()
	from := p.current
	if from == page {
		p.mu.Unlock()
		return
	}
	p.current = page
	observers := make([]func(from, to int), len(p.observers))
	for i, o := range p.observers {
		observers[i] = o.fn
	}
	p.mu.Unlock()

	for _, fn := range observers {
		fn(from, page)
	}
}
