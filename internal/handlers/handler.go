package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
	"github.com/harentsoaR/wellness-api/internal/middleware"
	"github.com/harentsoaR/wellness-api/internal/models"
	"github.com/harentsoaR/wellness-api/internal/scheduling"
	"github.com/harentsoaR/wellness-api/internal/store"
	"github.com/harentsoaR/wellness-api/internal/utils"
)

var ErrInvalidRequest = apperrors.Validation("INVALID_REQUEST", "invalid request body")

type AppointmentService interface {
	CreateAppointment(ctx context.Context, req scheduling.CreateRequest) (*models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, rawID, rawStatus string, caller scheduling.ProviderRef) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, rawID string, callerUserID primitive.ObjectID) (*models.Appointment, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]scheduling.AppointmentView, error)
	ListForProvider(ctx context.Context, caller scheduling.ProviderRef) ([]scheduling.AppointmentView, error)
	AvailableSlots(ctx context.Context, rawID, rawKind, date string) ([]string, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, upd store.UserUpdate) (*models.User, error)
}

type Deps struct {
	Appointments AppointmentService
	Users        UserStore
	Doctors      ProviderStore[models.Doctor]
	Labs         ProviderStore[models.Lab]
	Hospitals    ProviderStore[models.Hospital]
	Tokens       *utils.TokenManager
	Phones       *utils.PhoneNormalizer
	BcryptCost   int
	Health       func(ctx context.Context) error
	Logger       zerolog.Logger
}

type Handler struct {
	appointments AppointmentService
	users        UserStore
	providers    map[models.ProviderKind]providerAPI
	tokens       *utils.TokenManager
	phones       *utils.PhoneNormalizer
	bcryptCost   int
	health       func(ctx context.Context) error
	logger       zerolog.Logger
}

func NewHandler(d Deps) (*Handler, error) {
	if err := RegisterValidators(); err != nil {
		return nil, err
	}
	return &Handler{
		appointments: d.Appointments,
		users:        d.Users,
		providers: map[models.ProviderKind]providerAPI{
			models.KindDoctor:   &providerRoutes[models.Doctor]{store: d.Doctors, phones: d.Phones, prepare: doctorDefaults},
			models.KindLab:      &providerRoutes[models.Lab]{store: d.Labs, phones: d.Phones},
			models.KindHospital: &providerRoutes[models.Hospital]{store: d.Hospitals, phones: d.Phones},
		},
		tokens:     d.Tokens,
		phones:     d.Phones,
		bcryptCost: d.BcryptCost,
		health:     d.Health,
		logger:     d.Logger,
	}, nil
}

// RegisterRoutes mounts every endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Health)

	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/provider/login", h.ProviderLogin)
	}

	publicProviders := r.Group("/providers")
	{
		publicProviders.GET("", h.ListProviders)
		publicProviders.GET("/:kind/:id", h.withProvider(providerAPI.get))
		publicProviders.GET("/:kind/:id/services", h.withProvider(providerAPI.services))
		publicProviders.GET("/:kind/:id/availability", h.withProvider(providerAPI.availability))
		publicProviders.GET("/:kind/:id/slots", h.AvailableSlots)
	}

	apiRoutes := r.Group("/api")
	apiRoutes.Use(middleware.Auth(h.tokens, h.users))
	{
		apiRoutes.GET("/users/me", h.GetCurrentUser)
		apiRoutes.PUT("/users/me", h.UpdateCurrentUser)

		self := apiRoutes.Group("/providers/profile", middleware.RequireProvider())
		self.GET("", h.withOwnProvider(providerAPI.profile))
		self.PATCH("", h.withOwnProvider(providerAPI.patchProfile))
		self.PUT("/services", h.withOwnProvider(providerAPI.putServices))
		self.PUT("/availability", h.withOwnProvider(providerAPI.putAvailability))

		admin := apiRoutes.Group("/admin", middleware.RequireRole(models.RoleAdmin))
		for _, kind := range models.ProviderKinds {
			p := h.providers[kind]
			g := admin.Group("/" + kind.Lower() + "s")
			g.POST("", p.create)
			g.PATCH("/:id", p.update)
			g.DELETE("/:id", p.remove)
		}

		appointments := apiRoutes.Group("/appointments")
		appointments.POST("", h.CreateAppointment)
		appointments.GET("/user", h.ListUserAppointments)
		appointments.GET("/provider", middleware.RequireProvider(), h.ListProviderAppointments)
		appointments.PATCH("/:id/status", middleware.RequireProvider(), h.UpdateAppointmentStatus)
		appointments.PATCH("/:id/cancel", h.CancelAppointment)
	}
}

func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health(c.Request.Context()); err != nil {
			h.logger.Error().Err(err).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.RespondError(c, ErrInvalidRequest.WithMessage("%s", err.Error()))
		return false
	}
	return true
}

func idParam(c *gin.Context) (primitive.ObjectID, bool) {
	var uri struct {
		ID string `uri:"id" binding:"required,objectid"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.RespondError(c, scheduling.ErrInvalidID.WithMessage("malformed id %q", c.Param("id")))
		return primitive.NilObjectID, false
	}
	id, _ := primitive.ObjectIDFromHex(uri.ID)
	return id, true
}
