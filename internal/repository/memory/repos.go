package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GigRepo struct{ s *Store }

func (r *GigRepo) Create(ctx context.Context, g *models.Gig) error {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	return r.s.write(ctx, func(st *state) error {
		st.gigs[g.ID] = g.Clone()
		return nil
	})
}

func (r *GigRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Gig, error) {
	var out *models.Gig
	r.s.read(ctx, func(st *state) {
		out = st.gigs[id].Clone()
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *GigRepo) ListOpen(ctx context.Context, f repository.GigFilter) ([]*models.Gig, error) {
	search := strings.ToLower(f.Search)
	return r.list(ctx, func(g *models.Gig) bool {
		if g.Status != models.GigStatusOpen {
			return false
		}
		if search != "" && !strings.Contains(strings.ToLower(g.Title), search) {
			return false
		}
		if f.MinBudget != nil && g.Budget < *f.MinBudget {
			return false
		}
		if f.MaxBudget != nil && g.Budget > *f.MaxBudget {
			return false
		}
		return true
	}), nil
}

func (r *GigRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.Gig, error) {
	return r.list(ctx, func(g *models.Gig) bool { return g.OwnerID == ownerID }), nil
}

func (r *GigRepo) ListAssignedTo(ctx context.Context, userID primitive.ObjectID) ([]*models.Gig, error) {
	return r.list(ctx, func(g *models.Gig) bool { return g.ChatParticipant(userID) }), nil
}

func (r *GigRepo) AddBid(ctx context.Context, gigID primitive.ObjectID) (bool, error) {
	ok := false
	err := r.s.write(ctx, func(st *state) error {
		g := st.gigs[gigID]
		if g == nil || g.Status != models.GigStatusOpen {
			return nil
		}
		g.BidCount++
		g.UpdatedAt = time.Now().UTC()
		ok = true
		return nil
	})
	return ok, err
}

func (r *GigRepo) Assign(ctx context.Context, gigID, freelancerID primitive.ObjectID) (bool, error) {
	ok := false
	err := r.s.write(ctx, func(st *state) error {
		g := st.gigs[gigID]
		if g == nil || g.Status != models.GigStatusOpen {
			return nil
		}
		id := freelancerID
		g.Status = models.GigStatusAssigned
		g.HiredFreelancerID = &id
		g.UpdatedAt = time.Now().UTC()
		ok = true
		return nil
	})
	return ok, err
}

func (r *GigRepo) list(ctx context.Context, keep func(g *models.Gig) bool) []*models.Gig {
	out := []*models.Gig{}
	r.s.read(ctx, func(st *state) {
		for _, g := range st.gigs {
			if keep(g) {
				out = append(out, g.Clone())
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type BidRepo struct{ s *Store }

func (r *BidRepo) Create(ctx context.Context, b *models.Bid) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.bids {
			if existing.GigID == b.GigID && existing.FreelancerID == b.FreelancerID {
				return repository.ErrDuplicate
			}
		}
		st.bids[b.ID] = b.Clone()
		return nil
	})
}

func (r *BidRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Bid, error) {
	var out *models.Bid
	r.s.read(ctx, func(st *state) {
		out = st.bids[id].Clone()
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}

func (r *BidRepo) ListByGig(ctx context.Context, gigID primitive.ObjectID) ([]*models.Bid, error) {
	return r.list(ctx, func(b *models.Bid) bool { return b.GigID == gigID }), nil
}

func (r *BidRepo) ListByFreelancer(ctx context.Context, freelancerID primitive.ObjectID) ([]*models.Bid, error) {
	return r.list(ctx, func(b *models.Bid) bool { return b.FreelancerID == freelancerID }), nil
}

func (r *BidRepo) MarkHired(ctx context.Context, bidID primitive.ObjectID) (bool, error) {
	ok := false
	err := r.s.write(ctx, func(st *state) error {
		b := st.bids[bidID]
		if b == nil || b.Status != models.BidStatusPending {
			return nil
		}
		b.Status = models.BidStatusHired
		b.UpdatedAt = time.Now().UTC()
		ok = true
		return nil
	})
	return ok, err
}

func (r *BidRepo) RejectPending(ctx context.Context, gigID, exceptBidID primitive.ObjectID) (int64, error) {
	var n int64
	err := r.s.write(ctx, func(st *state) error {
		now := time.Now().UTC()
		for id, b := range st.bids {
			if b.GigID != gigID || id == exceptBidID || b.Status != models.BidStatusPending {
				continue
			}
			b.Status = models.BidStatusRejected
			b.UpdatedAt = now
			n++
		}
		return nil
	})
	return n, err
}

func (r *BidRepo) list(ctx context.Context, keep func(b *models.Bid) bool) []*models.Bid {
	out := []*models.Bid{}
	r.s.read(ctx, func(st *state) {
		for _, b := range st.bids {
			if keep(b) {
				out = append(out, b.Clone())
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

type MessageRepo struct{ s *Store }

func (r *MessageRepo) Create(ctx context.Context, m *models.ChatMessage) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	cp := *m
	return r.s.write(ctx, func(st *state) error {
		st.messages[m.GigID] = append(st.messages[m.GigID], &cp)
		return nil
	})
}

func (r *MessageRepo) ListByGig(ctx context.Context, gigID primitive.ObjectID, limit int64) ([]*models.ChatMessage, error) {
	out := []*models.ChatMessage{}
	r.s.read(ctx, func(st *state) {
		msgs := st.messages[gigID]
		start := 0
		if limit > 0 && int(limit) < len(msgs) {
			start = len(msgs) - int(limit)
		}
		for _, m := range msgs[start:] {
			cp := *m
			out = append(out, &cp)
		}
	})
	return out, nil
}

type UserRepo struct{ s *Store }

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.Email = strings.ToLower(u.Email)
	cp := *u
	return r.s.write(ctx, func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == cp.Email {
				return repository.ErrDuplicate
			}
		}
		st.users[cp.ID] = &cp
		return nil
	})
}

func (r *UserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.find(ctx, func(u *models.User) bool { return u.ID == id })
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	return r.find(ctx, func(u *models.User) bool { return u.Email == email })
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.User, error) {
	out := make(map[primitive.ObjectID]*models.User, len(ids))
	r.s.read(ctx, func(st *state) {
		for _, id := range ids {
			if u, ok := st.users[id]; ok {
				cp := *u
				out[id] = &cp
			}
		}
	})
	return out, nil
}

func (r *UserRepo) find(ctx context.Context, match func(u *models.User) bool) (*models.User, error) {
	var out *models.User
	r.s.read(ctx, func(st *state) {
		for _, u := range st.users {
			if match(u) {
				cp := *u
				out = &cp
				return
			}
		}
	})
	if out == nil {
		return nil, repository.ErrNotFound
	}
	return out, nil
}
