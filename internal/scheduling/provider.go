package scheduling

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/wellness-api/internal/models"
)

// ProviderRef identifies one provider: the kind selects the collection, the
// id the document within it.
type ProviderRef struct {
	Kind models.ProviderKind
	ID   primitive.ObjectID
}

func (r ProviderRef) IsZero() bool {
	return r.Kind == "" || r.ID.IsZero()
}

func (r ProviderRef) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind, r.ID.Hex())
}

// ParseProviderRef validates the kind before the id so an unsupported kind is
// reported as such even when the id is also malformed.
func ParseProviderRef(rawID, rawKind string) (ProviderRef, error) {
	kind, ok := models.ParseProviderKind(rawKind)
	if !ok {
		return ProviderRef{}, ErrInvalidProviderKind.WithMessage("unsupported provider kind %q", rawKind)
	}
	id, err := primitive.ObjectIDFromHex(rawID)
	if err != nil {
		return ProviderRef{}, ErrInvalidID.WithMessage("malformed provider id %q", rawID)
	}
	return ProviderRef{Kind: kind, ID: id}, nil
}

// ProviderView is what the booking flow sees of a provider, whatever its kind.
type ProviderView struct {
	Ref          ProviderRef
	Name         string
	Services     []models.Service
	Availability *models.Availability
}

// ProviderResolver loads one kind of provider.
type ProviderResolver interface {
	ResolveProvider(ctx context.Context, id primitive.ObjectID) (*ProviderView, error)
}

// Resolvers dispatches a provider reference to the resolver for its kind.
type Resolvers map[models.ProviderKind]ProviderResolver

func (r Resolvers) Resolve(ctx context.Context, rawID, rawKind string) (*ProviderView, error) {
	ref, err := ParseProviderRef(rawID, rawKind)
	if err != nil {
		return nil, err
	}
	return r.ResolveRef(ctx, ref)
}

func (r Resolvers) ResolveRef(ctx context.Context, ref ProviderRef) (*ProviderView, error) {
	resolver, ok := r[ref.Kind]
	if !ok {
		return nil, ErrInvalidProviderKind.WithMessage("no resolver registered for %s", ref.Kind)
	}
	return resolver.ResolveProvider(ctx, ref.ID)
}
