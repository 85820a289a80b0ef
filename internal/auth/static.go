package auth

import (
	"context"
	"sync"

	"github.com/desertthunder/xtrobe/internal/shared"
)

// StaticProvider holds one user for the lifetime of a process.
type StaticProvider struct {
	mu     sync.RWMutex
	user   string
	subs   map[int]func(string)
	nextID int
}

// NewStaticProvider creates a provider signed in as userID, or signed out when it is empty.
func NewStaticProvider(userID string) *StaticProvider {
	return &StaticProvider{user: userID, subs: make(map[int]func(string))}
}

// CurrentUser implements [Provider].
func (p *StaticProvider) CurrentUser(ctx context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == "" {
		return "", shared.ErrNotAuthenticated
	}
	return p.user, nil
}

// SignIn switches the current user and notifies subscribers.
func (p *StaticProvider) SignIn(userID string) {
	p.set(userID)
}

// SignOut clears the current user and notifies subscribers.
func (p *StaticProvider) SignOut() {
	p.set("")
}

// Subscribe implements [Notifier]. Callbacks run synchronously on the goroutine that changed the user.
func (p *StaticProvider) Subscribe(fn func(userID string)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subs, id)
	}
}

func (p *StaticProvider) set(userID string) {
	p.mu.Lock()
	if p.user == userID {
		p.mu.Unlock()
		return
	}
	p.user = userID
	subs := make([]func(string), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(userID)
	}
}
