// Package memory is an in-process implementation of the repository
// interfaces. It is used for tests and for running without MongoDB.
package memory

import (
	"context"
	"sync"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type state struct {
	gigs     map[primitive.ObjectID]*models.Gig
	bids     map[primitive.ObjectID]*models.Bid
	users    map[primitive.ObjectID]*models.User
	messages map[primitive.ObjectID][]*models.ChatMessage // gigID -> msgs
}

func newState() *state {
	return &state{
		gigs:     make(map[primitive.ObjectID]*models.Gig),
		bids:     make(map[primitive.ObjectID]*models.Bid),
		users:    make(map[primitive.ObjectID]*models.User),
		messages: make(map[primitive.ObjectID][]*models.ChatMessage),
	}
}

// clone copies the maps and the records they hold. Message slices are shared
// up to their length; appends on either copy do not leak into the other.
func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.gigs {
		cp.gigs[k] = v.Clone()
	}
	for k, v := range s.bids {
		cp.bids[k] = v.Clone()
	}
	for k, v := range s.users {
		u := *v
		cp.users[k] = &u
	}
	for k, v := range s.messages {
		cp.messages[k] = v[:len(v):len(v)]
	}
	return cp
}

type txKey struct{}

// Store holds all records. Writes and transactions are serialized by txMu.
// A transaction works on a private copy of the state that replaces the live
// state only when the transaction function succeeds, so reads never observe a
// half-applied transaction.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	cur  *state
}

func NewStore() *Store {
	return &Store{cur: newState()}
}

// Repositories returns every repository backed by s.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Gigs:     &GigRepo{s: s},
		Bids:     &BidRepo{s: s},
		Messages: &MessageRepo{s: s},
		Users:    &UserRepo{s: s},
		Tx:       s,
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	staged := s.cur.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, staged)); err != nil {
		return err
	}

	s.mu.Lock()
	s.cur = staged
	s.mu.Unlock()
	return nil
}

func (s *Store) read(ctx context.Context, fn func(st *state)) {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		fn(st)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.cur)
}

func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if st, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(st)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cur)
}
