package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/checkout-api/internal/common"
	"github.com/noah-isme/checkout-api/internal/db"
	dbgen "github.com/noah-isme/checkout-api/internal/db/gen"
	"github.com/noah-isme/checkout-api/internal/obs"
)

// ProfileStore is the subset of queries the resolver needs.
type ProfileStore interface {
	GetProfile(ctx context.Context, id pgtype.UUID) (dbgen.Profile, error)
	InsertProfileIfAbsent(ctx context.Context, arg dbgen.InsertProfileIfAbsentParams) (int64, error)
}

// Profile is the application-side record for an authenticated shopper.
type Profile struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FullName        *string         `json:"full_name,omitempty"`
	ShippingAddress json.RawMessage `json:"shipping_address,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Resolver maps bearer tokens to profiles, creating the profile on first sight.
type Resolver struct {
	verifier Verifier
	store    ProfileStore
	timeout  time.Duration
	logger   zerolog.Logger
	metrics  *obs.DomainMetrics
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Verifier Verifier
	Store    ProfileStore
	Timeout  time.Duration
	Logger   zerolog.Logger
	Metrics  *obs.DomainMetrics
}

// NewResolver validates cfg and returns a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("auth: verifier is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("auth: profile store is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Resolver{
		verifier: cfg.Verifier,
		store:    cfg.Store,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Resolve verifies token and returns the caller's profile. Concurrent first
// requests for the same user converge on a single row.
func (r *Resolver) Resolve(ctx context.Context, token string) (Profile, error) {
	ident, err := r.verifier.Verify(ctx, token)
	if err != nil {
		if common.IsAppError(err) {
			return Profile{}, err
		}
		return Profile{}, common.Unauthenticated("invalid token", err)
	}
	id, err := db.ParseUUID(ident.Subject)
	if err != nil {
		return Profile{}, common.Unauthenticated("invalid token", fmt.Errorf("auth: subject %q: %w", ident.Subject, err))
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row, err := r.store.GetProfile(ctx, id)
	if err == nil {
		return toProfile(row), nil
	}
	if !db.IsNotFound(err) {
		return Profile{}, provisionErr(fmt.Errorf("load profile: %w", err))
	}

	inserted, err := r.store.InsertProfileIfAbsent(ctx, dbgen.InsertProfileIfAbsentParams{
		ID:       id,
		Email:    ident.Email,
		FullName: pgtype.Text{String: ident.Name, Valid: strings.TrimSpace(ident.Name) != ""},
	})
	if err != nil {
		return Profile{}, provisionErr(fmt.Errorf("insert profile: %w", err))
	}
	if inserted > 0 {
		r.metrics.ProfileProvisioned()
		r.logger.Info().Str("user_id", ident.Subject).Str("email", obs.RedactEmail(ident.Email)).Msg("profile provisioned")
	}

	row, err = r.store.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, provisionErr(fmt.Errorf("reload profile: %w", err))
	}
	return toProfile(row), nil
}

// provisionErr maps a datastore failure to its AppError, keeping deadlines
// distinguishable from provisioning faults.
func provisionErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.Upstream("database", err)
	}
	return common.ProfileProvisioningFailed(err)
}

func toProfile(row dbgen.Profile) Profile {
	p := Profile{
		ID:        db.UUIDString(row.ID),
		Email:     row.Email,
		CreatedAt: row.CreatedAt.Time,
	}
	if row.FullName.Valid {
		name := row.FullName.String
		p.FullName = &name
	}
	if len(row.ShippingAddress) > 0 {
		p.ShippingAddress = json.RawMessage(row.ShippingAddress)
	}
	return p
}
