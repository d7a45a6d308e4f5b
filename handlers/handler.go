package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"blogapi/database"
	"blogapi/middleware"
	"blogapi/storage"
)

const requestTimeout = 10 * time.Second

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
)

// Notifier receives comment events for the live feed.
type Notifier interface {
	Broadcast(eventType, postID string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Broadcast(string, string, interface{}) {}

type Options struct {
	Store      *database.Store
	Images     storage.ImageStore
	Feed       Notifier
	JWTSecret  []byte
	JWTTTL     time.Duration
	BcryptCost int
}

// Handler serves the user, post, comment and upload endpoints.
type Handler struct {
	store      *database.Store
	images     storage.ImageStore
	feed       Notifier
	jwtSecret  []byte
	jwtTTL     time.Duration
	bcryptCost int
	now        func() time.Time
}

func New(opts Options) *Handler {
	h := &Handler{
		store:      opts.Store,
		images:     opts.Images,
		feed:       opts.Feed,
		jwtSecret:  opts.JWTSecret,
		jwtTTL:     opts.JWTTTL,
		bcryptCost: opts.BcryptCost,
		now:        time.Now,
	}
	if h.feed == nil {
		h.feed = noopNotifier{}
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = bcrypt.DefaultCost
	}
	if h.jwtTTL == 0 {
		h.jwtTTL = 30 * 24 * time.Hour
	}
	return h
}

func (h *Handler) timestamp() time.Time {
	// BSON dates keep millisecond precision.
	return h.now().UTC().Truncate(time.Millisecond)
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// fail maps err to a response. Unexpected errors are logged and hidden
// behind msg.
func fail(c *gin.Context, op string, err error, notFoundMsg, msg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMsg})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "No access"})
	default:
		log.Printf("[%s] error: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": msg})
	}
}

// callerID returns the authenticated user's id set by middleware.JWTAuth.
func callerID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No access"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// pathID parses an id path parameter. Malformed ids cannot name a record and
// are answered with 404.
func pathID(c *gin.Context, name, notFoundMsg string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMsg})
		return primitive.NilObjectID, false
	}
	return id, true
}

// bind decodes the JSON body into req and answers 400 with the failed rules.
func bind(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]gin.H, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, gin.H{"field": fe.Field(), "rule": fe.Tag()})
		}
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body", "errors": details})
		return false
	}

	c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
	return false
}

// UseJSONFieldNames makes validation errors report json field names.
func UseJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}
