package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/data/db"
	"github.com/yungbote/pulseloop-backend/internal/data/repos"
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/domain/user"
	"github.com/yungbote/pulseloop-backend/internal/platform/ctxutil"
	"github.com/yungbote/pulseloop-backend/internal/platform/dbctx"
	"github.com/yungbote/pulseloop-backend/internal/platform/logger"
)

const defaultDisplayName = "PulseLoop User"

var ErrAuthNotConfigured = errors.New("authentication is not configured")

type AuthService interface {
	// SetContextFromToken verifies the bearer token, provisions the caller and attaches RequestData.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	DevMode() bool
}

type authService struct {
	log         *logger.Logger
	verifier    TokenVerifier
	userRepo    repos.UserRepo
	orgRepo     repos.OrganizationRepo
	defaultRole string
	devUserID   string
}

// Identity is the subset of token claims the backend keys users on.
type Identity struct {
	ExternalID  string
	Email       string
	DisplayName string
	TenantID    string
	Role        string
	JobRole     string
}

func NewAuthService(
	log *logger.Logger,
	verifier TokenVerifier,
	userRepo repos.UserRepo,
	orgRepo repos.OrganizationRepo,
	cfg EntraConfig,
) AuthService {
	role := strings.ToLower(strings.TrimSpace(cfg.DefaultRole))
	if role == "" {
		role = user.RoleEmployee
	}
	return &authService{
		log:         log.With("service", "AuthService"),
		verifier:    verifier,
		userRepo:    userRepo,
		orgRepo:     orgRepo,
		defaultRole: role,
		devUserID:   strings.TrimSpace(cfg.DevUserExternalID),
	}
}

// DevMode is on only when no verifier exists and a dev identity is configured.
func (as *authService) DevMode() bool {
	return as.verifier == nil && as.devUserID != ""
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	var id Identity
	switch {
	case as.verifier != nil:
		claims, err := as.verifier.Verify(ctx, tokenString)
		if err != nil {
			return ctx, err
		}
		id, err = IdentityFromClaims(claims, as.defaultRole)
		if err != nil {
			return ctx, err
		}
	case as.DevMode():
		id = Identity{ExternalID: as.devUserID, DisplayName: "Dev User", Role: user.RoleAdmin}
	default:
		return ctx, ErrAuthNotConfigured
	}

	u, err := as.provision(ctx, id)
	if err != nil {
		return ctx, err
	}
	rd := &ctxutil.RequestData{
		TokenString:    tokenString,
		UserID:         u.ID,
		ExternalID:     u.ExternalID,
		OrganizationID: u.OrganizationID,
		Role:           u.Role,
		JobRole:        u.JobRole,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

// IdentityFromClaims maps Entra access-token claims onto an Identity.
func IdentityFromClaims(claims jwt.MapClaims, defaultRole string) (Identity, error) {
	ext := claimString(claims, "oid", "sub")
	if ext == "" {
		return Identity{}, errors.New("token has no oid or sub claim")
	}
	email := claimString(claims, "preferred_username", "email", "upn")
	name := claimString(claims, "name")
	if name == "" {
		name = email
	}
	if name == "" {
		name = defaultDisplayName
	}
	return Identity{
		ExternalID:  ext,
		Email:       email,
		DisplayName: name,
		TenantID:    claimString(claims, "tid"),
		Role:        resolveRole(claims, defaultRole),
		JobRole:     claimString(claims, "jobTitle", "job_title"),
	}, nil
}

func resolveRole(claims jwt.MapClaims, defaultRole string) string {
	if roles := claimStrings(claims, "roles"); len(roles) > 0 {
		return strings.ToLower(strings.TrimSpace(roles[0]))
	}
	for _, g := range claimStrings(claims, "groups") {
		if strings.Contains(strings.ToLower(g), "admin") {
			return user.RoleAdmin
		}
	}
	if defaultRole == "" {
		return user.RoleEmployee
	}
	return defaultRole
}

// provision finds or creates the user (and their organization) and syncs changed profile fields.
func (as *authService) provision(ctx context.Context, id Identity) (*domain.User, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var orgID *uuid.UUID
	if id.TenantID != "" {
		org, err := as.ensureOrganization(ctx, id.TenantID)
		if err != nil {
			return nil, err
		}
		orgID = &org.ID
	}

	existing, err := as.userRepo.GetByExternalID(dbc, id.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing == nil {
		created, err := as.userRepo.Create(dbc, []*domain.User{{
			ExternalID:     id.ExternalID,
			Email:          id.Email,
			DisplayName:    id.DisplayName,
			TenantID:       id.TenantID,
			OrganizationID: orgID,
			Role:           id.Role,
			JobRole:        id.JobRole,
		}})
		if err != nil {
			// A concurrent first request may have inserted the same external id.
			if !db.IsUniqueViolation(err) {
				return nil, fmt.Errorf("create user: %w", err)
			}
			if again, gerr := as.userRepo.GetByExternalID(dbc, id.ExternalID); gerr == nil && again != nil {
				return again, nil
			}
			return nil, fmt.Errorf("create user: %w", err)
		}
		as.log.Info("user provisioned", "user_id", created[0].ID, "external_id", id.ExternalID)
		return created[0], nil
	}

	updates := map[string]interface{}{}
	if id.Email != "" && id.Email != existing.Email {
		updates["email"] = id.Email
		existing.Email = id.Email
	}
	if id.DisplayName != "" && id.DisplayName != defaultDisplayName && id.DisplayName != existing.DisplayName {
		updates["display_name"] = id.DisplayName
		existing.DisplayName = id.DisplayName
	}
	if id.Role != "" && id.Role != existing.Role {
		updates["role"] = id.Role
		existing.Role = id.Role
	}
	if id.JobRole != "" && id.JobRole != existing.JobRole {
		updates["job_role"] = id.JobRole
		existing.JobRole = id.JobRole
	}
	if orgID != nil && (existing.OrganizationID == nil || *existing.OrganizationID != *orgID) {
		updates["organization_id"] = *orgID
		updates["tenant_id"] = id.TenantID
		existing.OrganizationID = orgID
		existing.TenantID = id.TenantID
	}
	if len(updates) > 0 {
		if err := as.userRepo.UpdateFields(dbc, existing.ID, updates); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return existing, nil
}

func (as *authService) ensureOrganization(ctx context.Context, tenantID string) (*domain.Organization, error) {
	dbc := dbctx.Context{Ctx: ctx}
	org, err := as.orgRepo.GetByTenantID(dbc, tenantID)
	if err != nil {
		return nil, fmt.Errorf("lookup organization: %w", err)
	}
	if org != nil {
		return org, nil
	}
	org = &domain.Organization{TenantID: tenantID, Name: tenantID}
	if err := as.orgRepo.Create(dbc, org); err != nil {
		if !db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create organization: %w", err)
		}
		if again, gerr := as.orgRepo.GetByTenantID(dbc, tenantID); gerr == nil && again != nil {
			return again, nil
		}
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return org, nil
}
