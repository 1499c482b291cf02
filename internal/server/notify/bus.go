// Package notify is an in-process event bus. The authenticator publishes
// breach detections; the identity side publishes credential changes.
// Handlers run synchronously in registration order.
package notify

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/honeykeeper/internal/server/audit"
	"github.com/dmitrijs2005/honeykeeper/internal/server/models"
)

// Breach describes a submitted honeyword.
type Breach struct {
	User  *models.User
	Event *models.AuditEvent
	Meta  audit.Meta
}

// CredentialChanged is emitted when a user's legacy password hash changes
// outside of honeyword initialization.
type CredentialChanged struct {
	UserID   string
	UserName string
}

type BreachHandler func(ctx context.Context, b Breach)
type CredentialChangedHandler func(ctx context.Context, e CredentialChanged)

type Bus struct {
	mu      sync.RWMutex
	breach  []BreachHandler
	changed []CredentialChangedHandler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) OnBreach(h BreachHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.breach = append(b.breach, h)
}

func (b *Bus) OnCredentialChanged(h CredentialChangedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.changed = append(b.changed, h)
}

func (b *Bus) PublishBreach(ctx context.Context, e Breach) {
	b.mu.RLock()
	hs := append([]BreachHandler(nil), b.breach...)
	b.mu.RUnlock()
	for _, h := range hs {
		h(ctx, e)
	}
}

func (b *Bus) PublishCredentialChanged(ctx context.Context, e CredentialChanged) {
	b.mu.RLock()
	hs := append([]CredentialChangedHandler(nil), b.changed...)
	b.mu.RUnlock()
	for _, h := range hs {
		h(ctx, e)
	}
}
