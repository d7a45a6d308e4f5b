package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"blogapi/middleware"
	"blogapi/models"
)

const userNotFound = "User not found"

type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required,min=5"`
	FullName  string `json:"fullName" binding:"required,min=3"`
	AvatarURL string `json:"avatarUrl" binding:"omitempty,url|startswith=/"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=5"`
}

type authResponse struct {
	*models.User
	Token string `json:"token"`
}

var emailRule = validator.New()

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// bindEmail normalises the address and checks the format of the result.
func bindEmail(c *gin.Context, raw string) (string, bool) {
	email := normalizeEmail(raw)
	if err := emailRule.Var(email, "email"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid request body",
			"errors":  []gin.H{{"field": "email", "rule": "email"}},
		})
		return "", false
	}
	return email, true
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}

	email, ok := bindEmail(c, req.Email)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	// Check if email already exists
	n, err := h.store.Users.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		fail(c, "Register", err, userNotFound, "Could not register")
		return
	}
	if n > 0 {
		c.JSON(http.StatusConflict, gin.H{"message": "Email already in use"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		fail(c, "Register", err, userNotFound, "Could not register")
		return
	}

	now := h.timestamp()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     req.FullName,
		Email:        email,
		PasswordHash: string(hash),
		AvatarURL:    req.AvatarURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := h.store.Users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Email already in use"})
			return
		}
		fail(c, "Register", err, userNotFound, "Could not register")
		return
	}

	token, err := middleware.NewToken(user.ID.Hex(), h.jwtSecret, h.jwtTTL)
	if err != nil {
		fail(c, "Register", err, userNotFound, "Could not register")
		return
	}

	c.JSON(http.StatusCreated, authResponse{User: &user, Token: token})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	email, ok := bindEmail(c, req.Email)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var user models.User
	err := h.store.Users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}
	if err != nil {
		fail(c, "Login", err, userNotFound, "Could not log in")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid email or password"})
		return
	}

	token, err := middleware.NewToken(user.ID.Hex(), h.jwtSecret, h.jwtTTL)
	if err != nil {
		fail(c, "Login", err, userNotFound, "Could not log in")
		return
	}

	c.JSON(http.StatusOK, authResponse{User: &user, Token: token})
}

// GetMe returns the authenticated user.
func (h *Handler) GetMe(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var user models.User
	err := h.store.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		log.Printf("[GetMe] user %s from a valid token no longer exists", userID.Hex())
		err = ErrNotFound
	}
	if err != nil {
		fail(c, "GetMe", err, userNotFound, "Could not fetch user")
		return
	}

	c.JSON(http.StatusOK, user)
}
