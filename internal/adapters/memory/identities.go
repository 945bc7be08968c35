package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Bidder describes what the identity service knows about a user
type Bidder struct {
	ID         uuid.UUID
	Active     bool
	CanBid     bool
	ThirdParty bool
}

// Identities is an in-memory identity provider. Unknown users are treated
// as unauthenticated.
type Identities struct {
	mu      sync.RWMutex
	bidders map[uuid.UUID]Bidder
}

// NewIdentities creates a provider knowing the given bidders
func NewIdentities(bidders ...Bidder) *Identities {
	identities := &Identities{bidders: make(map[uuid.UUID]Bidder)}
	for _, b := range bidders {
		identities.Put(b)
	}
	return identities
}

// Put adds or replaces a bidder
func (i *Identities) Put(b Bidder) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.bidders[b.ID] = b
}

func (i *Identities) get(id uuid.UUID) (Bidder, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	b, ok := i.bidders[id]
	return b, ok
}

func (i *Identities) IsAuthenticated(ctx context.Context, userID uuid.UUID) (bool, error) {
	b, ok := i.get(userID)
	return ok && b.Active, nil
}

func (i *Identities) CanBid(ctx context.Context, userID uuid.UUID) (bool, error) {
	b, ok := i.get(userID)
	return ok && b.CanBid, nil
}

func (i *Identities) IsThirdParty(ctx context.Context, userID uuid.UUID) (bool, error) {
	b, _ := i.get(userID)
	return b.ThirdParty, nil
}
