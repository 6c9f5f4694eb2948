package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/wellness-api/internal/middleware"
	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
	"github.com/harentsoaR/wellness-api/internal/utils"
)

// ProviderStore is the per-kind provider persistence. store.ProviderRepo
// implements it for doctors, labs and hospitals.
type ProviderStore[T any] interface {
	Kind() models.ProviderKind
	Base(doc *T) *models.ProviderBase
	Create(ctx context.Context, doc *T) error
	Get(ctx context.Context, id primitive.ObjectID) (*T, error)
	List(ctx context.Context, search string) ([]T, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProviderUpdate) (*T, error)
	UpdateServices(ctx context.Context, id primitive.ObjectID, services []models.Service) (*T, error)
	SetAvailability(ctx context.Context, id primitive.ObjectID, av models.Availability) (*T, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// providerAPI is the kind-erased view of providerRoutes used by the router.
type providerAPI interface {
	list(ctx context.Context, search string) (any, error)

	get(c *gin.Context, id primitive.ObjectID)
	services(c *gin.Context, id primitive.ObjectID)
	availability(c *gin.Context, id primitive.ObjectID)

	profile(c *gin.Context, id primitive.ObjectID)
	patchProfile(c *gin.Context, id primitive.ObjectID)
	putServices(c *gin.Context, id primitive.ObjectID)
	putAvailability(c *gin.Context, id primitive.ObjectID)

	create(c *gin.Context)
	update(c *gin.Context)
	remove(c *gin.Context)
}

type providerRoutes[T any] struct {
	store   ProviderStore[T]
	phones  *utils.PhoneNormalizer
	prepare func(*T)
}

type servicesRequest struct {
	Services []models.Service `json:"services" binding:"dive"`
}

// doctorDefaults gives a doctor created without services a single
// "Consultation" service at the consultation fee.
func doctorDefaults(d *models.Doctor) {
	if len(d.Services) == 0 && d.ConsultationFee > 0 {
		d.Services = []models.Service{{Name: "Consultation", Price: d.ConsultationFee}}
	}
}

// ListProviders returns active providers grouped by kind. ?type= restricts
// the result to one kind and ?search= filters on the name.
func (h *Handler) ListProviders(c *gin.Context) {
	kinds := models.ProviderKinds
	if raw := c.Query("type"); raw != "" {
		kind, ok := models.ParseProviderKind(raw)
		if !ok {
			middleware.RespondError(c, scheduling.ErrInvalidProviderKind.WithMessage("unknown provider type %q", raw))
			return
		}
		kinds = []models.ProviderKind{kind}
	}

	out := gin.H{}
	for _, kind := range kinds {
		docs, err := h.providers[kind].list(c.Request.Context(), c.Query("search"))
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		out[kind.Lower()+"s"] = docs
	}
	c.JSON(http.StatusOK, out)
}

// withProvider resolves the :kind and :id path parameters of the public
// provider routes. The kind is checked first.
func (h *Handler) withProvider(fn func(providerAPI, *gin.Context, primitive.ObjectID)) gin.HandlerFunc {
	return func(c *gin.Context) {
		kind, ok := models.ParseProviderKind(c.Param("kind"))
		if !ok {
			middleware.RespondError(c, scheduling.ErrInvalidProviderKind.WithMessage("unknown provider type %q", c.Param("kind")))
			return
		}
		id, ok := idParam(c)
		if !ok {
			return
		}
		fn(h.providers[kind], c, id)
	}
}

// withOwnProvider dispatches to the provider the caller operates.
func (h *Handler) withOwnProvider(fn func(providerAPI, *gin.Context, primitive.ObjectID)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := middleware.CurrentProvider(c)
		p, ok := h.providers[ref.Kind]
		if !ok {
			middleware.RespondError(c, middleware.ErrRoleRequired)
			return
		}
		fn(p, c, ref.ID)
	}
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		middleware.RespondError(c, ErrInvalidRequest.WithMessage("date query parameter is required"))
		return
	}
	slots, err := h.appointments.AvailableSlots(c.Request.Context(), c.Param("id"), c.Param("kind"), date)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "slots": slots})
}

func (p *providerRoutes[T]) list(ctx context.Context, search string) (any, error) {
	return p.store.List(ctx, search)
}

func (p *providerRoutes[T]) load(c *gin.Context, id primitive.ObjectID) (*T, bool) {
	doc, err := p.store.Get(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, err)
		return nil, false
	}
	return doc, true
}

func (p *providerRoutes[T]) get(c *gin.Context, id primitive.ObjectID) {
	if doc, ok := p.load(c, id); ok {
		c.JSON(http.StatusOK, doc)
	}
}

func (p *providerRoutes[T]) services(c *gin.Context, id primitive.ObjectID) {
	doc, ok := p.load(c, id)
	if !ok {
		return
	}
	services := p.store.Base(doc).Services
	if services == nil {
		services = []models.Service{}
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

func (p *providerRoutes[T]) availability(c *gin.Context, id primitive.ObjectID) {
	if doc, ok := p.load(c, id); ok {
		c.JSON(http.StatusOK, gin.H{"availability": p.store.Base(doc).Availability})
	}
}

func (p *providerRoutes[T]) profile(c *gin.Context, id primitive.ObjectID) {
	p.get(c, id)
}

func (p *providerRoutes[T]) patchProfile(c *gin.Context, id primitive.ObjectID) {
	var upd models.ProviderUpdate
	if !bindJSON(c, &upd) {
		return
	}
	// Deactivation is an admin decision.
	upd.IsActive = nil
	p.applyUpdate(c, id, upd)
}

func (p *providerRoutes[T]) putServices(c *gin.Context, id primitive.ObjectID) {
	var req servicesRequest
	if !bindJSON(c, &req) {
		return
	}
	doc, err := p.store.UpdateServices(c.Request.Context(), id, req.Services)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (p *providerRoutes[T]) putAvailability(c *gin.Context, id primitive.ObjectID) {
	var av models.Availability
	if !bindJSON(c, &av) {
		return
	}
	doc, err := p.store.SetAvailability(c.Request.Context(), id, av)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// create registers a provider of this kind. When userId is set the account
// becomes the provider's owner.
func (p *providerRoutes[T]) create(c *gin.Context) {
	doc := new(T)
	if !bindJSON(c, doc) {
		return
	}
	b := p.store.Base(doc)
	b.Name = strings.TrimSpace(b.Name)
	if b.Name == "" || strings.TrimSpace(b.Email) == "" {
		middleware.RespondError(c, ErrInvalidRequest.WithMessage("name and email are required"))
		return
	}
	if b.PhoneNumber != "" {
		phone, err := p.phones.Normalize(b.PhoneNumber)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		b.PhoneNumber = phone
	}
	if p.prepare != nil {
		p.prepare(doc)
	}
	b.IsActive = true

	if err := p.store.Create(c.Request.Context(), doc); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (p *providerRoutes[T]) update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var upd models.ProviderUpdate
	if !bindJSON(c, &upd) {
		return
	}
	p.applyUpdate(c, id, upd)
}

func (p *providerRoutes[T]) applyUpdate(c *gin.Context, id primitive.ObjectID, upd models.ProviderUpdate) {
	if upd.PhoneNumber != nil && *upd.PhoneNumber != "" {
		phone, err := p.phones.Normalize(*upd.PhoneNumber)
		if err != nil {
			middleware.RespondError(c, err)
			return
		}
		upd.PhoneNumber = &phone
	}
	doc, err := p.store.UpdateProfile(c.Request.Context(), id, upd)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (p *providerRoutes[T]) remove(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := p.store.Delete(c.Request.Context(), id); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": p.store.Kind().Lower() + " deleted"})
}
