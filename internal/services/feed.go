package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

const (
	defaultFeedLimit = 20
	feedScanFactor   = 5
	maxFeedScan      = 200
)

type DailyOptions struct {
	Article *domain.ContentItem `json:"article"`
	Podcast *domain.ContentItem `json:"podcast"`
}

type FeedService interface {
	GetFeed(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ContentItem, error)
	GetToday(ctx context.Context, userID uuid.UUID) (*domain.ContentItem, error)
	GetDailyOptions(ctx context.Context, userID uuid.UUID) (*DailyOptions, error)
}

type feedService struct {
	log         *logger.Logger
	userRepo    repos.UserRepo
	orgRepo     repos.OrganizationRepo
	contentRepo repos.ContentRepo
}

func NewFeedService(log *logger.Logger, userRepo repos.UserRepo, orgRepo repos.OrganizationRepo, contentRepo repos.ContentRepo) FeedService {
	return &feedService{
		log:         log.With("service", "FeedService"),
		userRepo:    userRepo,
		orgRepo:     orgRepo,
		contentRepo: contentRepo,
	}
}

// audience is what a learner is allowed to see.
type audience struct {
	orgID     *uuid.UUID
	role      string
	keywords  map[string]struct{}
	sourceIDs map[string]struct{}
}

func (fs *feedService) audienceFor(ctx context.Context, userID uuid.UUID) (*audience, error) {
	dbc := dbctx.Context{Ctx: ctx}
	u, err := fs.userRepo.GetByID(dbc, userID)
	if err != nil {
		return nil, apierr.Internal("user_lookup_failed", err)
	}
	if u == nil {
		return nil, apierr.NotFound("user_not_found", "user %s", userID)
	}
	role := strings.TrimSpace(u.JobRole)
	if role == "" {
		role = strings.TrimSpace(u.Role)
	}
	a := &audience{orgID: u.OrganizationID, role: strings.ToLower(role), keywords: RoleKeywords(role)}
	if u.OrganizationID != nil {
		org, err := fs.orgRepo.GetByID(dbc, *u.OrganizationID)
		if err != nil {
			return nil, apierr.Internal("organization_lookup_failed", err)
		}
		if org != nil && len(org.SourceIDs) > 0 {
			a.sourceIDs = make(map[string]struct{}, len(org.SourceIDs))
			for _, id := range org.SourceIDs {
				a.sourceIDs[strings.ToLower(id)] = struct{}{}
			}
		}
	}
	return a, nil
}

// RoleKeywords splits a job role into the words used to match content tags.
func RoleKeywords(role string) map[string]struct{} {
	out := map[string]struct{}{}
	fields := strings.FieldsFunc(strings.ToLower(role), func(r rune) bool {
		return r == ' ' || r == '/' || r == '-' || r == ','
	})
	for _, f := range fields {
		if len(f) > 3 {
			out[f] = struct{}{}
		}
	}
	return out
}

// allows applies the role, tag and source filters. Untagged content is visible to everyone.
func (a *audience) allows(item *domain.ContentItem) bool {
	if len(item.RoleTags) > 0 {
		if a.role == "" {
			return false
		}
		matched := false
		for _, t := range item.RoleTags {
			if strings.EqualFold(strings.TrimSpace(t), a.role) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(a.keywords) > 0 && len(item.Tags) > 0 {
		matched := false
		for _, t := range item.Tags {
			if _, ok := a.keywords[strings.ToLower(strings.TrimSpace(t))]; ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if a.sourceIDs != nil {
		if item.SourceID == nil {
			return false
		}
		if _, ok := a.sourceIDs[item.SourceID.String()]; !ok {
			return false
		}
	}
	return true
}

func (fs *feedService) scan(ctx context.Context, a *audience, t domain.ContentType, limit int) ([]*domain.ContentItem, error) {
	window := limit * feedScanFactor
	if window > maxFeedScan {
		window = maxFeedScan
	}
	items, err := fs.contentRepo.ListForFeed(dbctx.Context{Ctx: ctx}, repos.FeedFilter{
		OrganizationID: a.orgID,
		Type:           t,
		Limit:          window,
	})
	if err != nil {
		return nil, apierr.Internal("feed_failed", err)
	}
	out := make([]*domain.ContentItem, 0, limit)
	for _, it := range items {
		if !a.allows(it) {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (fs *feedService) GetFeed(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.ContentItem, error) {
	if limit <= 0 || limit > maxFeedScan {
		limit = defaultFeedLimit
	}
	a, err := fs.audienceFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return fs.scan(ctx, a, "", limit)
}

// GetToday is the top feed item; nil when nothing is visible.
func (fs *feedService) GetToday(ctx context.Context, userID uuid.UUID) (*domain.ContentItem, error) {
	feed, err := fs.GetFeed(ctx, userID, 1)
	if err != nil || len(feed) == 0 {
		return nil, err
	}
	return feed[0], nil
}

func (fs *feedService) GetDailyOptions(ctx context.Context, userID uuid.UUID) (*DailyOptions, error) {
	a, err := fs.audienceFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	article, err := fs.latestVisible(ctx, a, domain.ContentArticle)
	if err != nil {
		return nil, err
	}
	podcast, err := fs.latestVisible(ctx, a, domain.ContentPodcast)
	if err != nil {
		return nil, err
	}
	return &DailyOptions{Article: article, Podcast: podcast}, nil
}

// latestVisible returns the newest item of type t the audience may see.
func (fs *feedService) latestVisible(ctx context.Context, a *audience, t domain.ContentType) (*domain.ContentItem, error) {
	latest, err := fs.contentRepo.LatestByType(dbctx.Context{Ctx: ctx}, a.orgID, t)
	if err != nil {
		return nil, apierr.Internal("feed_failed", err)
	}
	if latest == nil {
		return nil, nil
	}
	if a.allows(latest) {
		return latest, nil
	}
	candidates, err := fs.scan(ctx, a, t, maxFeedScan/feedScanFactor)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	sort.SliceStable(candidates, func(i, j int) bool { return newer(candidates[i], candidates[j]) })
	return candidates[0], nil
}

func newer(a, b *domain.ContentItem) bool {
	switch {
	case a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
		return a.PublishedAt.After(*b.PublishedAt)
	case a.PublishedAt != nil && b.PublishedAt == nil:
		return true
	case a.PublishedAt == nil && b.PublishedAt != nil:
		return false
	}
	return a.CreatedAt.After(b.CreatedAt)
}
