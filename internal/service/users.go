package service

import (
	"context"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// userDirectory resolves user ids to their public profile in one lookup.
type userDirectory map[primitive.ObjectID]*models.User

func loadUsers(ctx context.Context, users repository.UserRepository, ids ...primitive.ObjectID) (userDirectory, error) {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	uniq := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	m, err := users.FindByIDs(ctx, uniq)
	if err != nil {
		return nil, err
	}
	return userDirectory(m), nil
}

func (d userDirectory) public(id primitive.ObjectID) *models.PublicUser {
	return d[id].Public()
}

func (d userDirectory) gigView(g *models.Gig) *models.GigView {
	v := &models.GigView{Gig: g, Owner: d.public(g.OwnerID)}
	if g.HiredFreelancerID != nil {
		v.HiredFreelancer = d.public(*g.HiredFreelancerID)
	}
	return v
}

func gigUserIDs(gigs []*models.Gig) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(gigs)*2)
	for _, g := range gigs {
		ids = append(ids, g.OwnerID)
		if g.HiredFreelancerID != nil {
			ids = append(ids, *g.HiredFreelancerID)
		}
	}
	return ids
}
