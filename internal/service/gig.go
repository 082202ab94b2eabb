package service

import (
	"context"
	"strings"
	"time"

	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/models"
	"github.com/TMB2003/Mini-Freelance-Marketplace/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	minGigTitleLength   = 3
	maxDescriptionChars = 2000
)

type CreateGigInput struct {
	Title       string
	Description string
	Budget      float64
}

type GigService struct {
	repos  *repository.Repositories
	logger *zap.SugaredLogger
}

func NewGigService(repos *repository.Repositories, logger *zap.SugaredLogger) *GigService {
	return &GigService{repos: repos, logger: logger}
}

func (s *GigService) Create(ctx context.Context, ownerID primitive.ObjectID, in CreateGigInput) (*models.GigView, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	switch {
	case title == "":
		return nil, Validation("Title and budget are required")
	case len([]rune(title)) < minGigTitleLength:
		return nil, Validation("Title must be at least 3 characters")
	case in.Budget <= 0:
		return nil, Validation("Budget must be greater than 0")
	case len([]rune(desc)) > maxDescriptionChars:
		return nil, Validation("Description is too long")
	}

	now := time.Now().UTC()
	g := &models.Gig{
		Title:       title,
		Description: desc,
		Budget:      in.Budget,
		OwnerID:     ownerID,
		Status:      models.GigStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Gigs.Create(ctx, g); err != nil {
		return nil, internal("create gig", err)
	}
	s.logger.Infow("gig created", "gig_id", g.ID.Hex(), "owner_id", ownerID.Hex())

	users, err := loadUsers(ctx, s.repos.Users, ownerID)
	if err != nil {
		return nil, internal("load owner", err)
	}
	return users.gigView(g), nil
}

func (s *GigService) ListOpen(ctx context.Context, f repository.GigFilter) ([]*models.GigView, error) {
	f.Search = strings.TrimSpace(f.Search)
	gigs, err := s.repos.Gigs.ListOpen(ctx, f)
	if err != nil {
		return nil, internal("list gigs", err)
	}
	return s.views(ctx, gigs)
}

func (s *GigService) ListByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]*models.GigView, error) {
	gigs, err := s.repos.Gigs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, internal("list own gigs", err)
	}
	return s.views(ctx, gigs)
}

func (s *GigService) views(ctx context.Context, gigs []*models.Gig) ([]*models.GigView, error) {
	users, err := loadUsers(ctx, s.repos.Users, gigUserIDs(gigs)...)
	if err != nil {
		return nil, internal("load gig users", err)
	}
	out := make([]*models.GigView, 0, len(gigs))
	for _, g := range gigs {
		out = append(out, users.gigView(g))
	}
	return out, nil
}
