package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"blogapi/middleware"
	"blogapi/models"
)

func TestRegister(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodPost, "/auth/register", "", gin.H{
		"email":     "  Ann@Example.com ",
		"password":  "secret1",
		"fullName":  "Ann Author",
		"avatarUrl": "/uploads/ann.png",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "passwordHash")
	assert.NotContains(t, w.Body.String(), "secret1")

	body := decode[authBody](t, w)
	assert.Equal(t, "ann@example.com", body.Email)
	assert.Equal(t, "Ann Author", body.FullName)

	userID, err := middleware.ParseToken(body.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, body.ID, userID)

	var stored models.User
	require.NoError(t, app.store.Users.FindOne(context.Background(), bson.M{"email": "ann@example.com"}).Decode(&stored))
	assert.NotEqual(t, "secret1", stored.PasswordHash)
	assert.Equal(t, "/uploads/ann.png", stored.AvatarURL)
}

func TestRegisterDuplicate(t *testing.T) {
	app := newTestApp(t, false)
	app.register("ann@example.com", "Ann Author")

	w := app.do(http.MethodPost, "/auth/register", "", gin.H{
		"email":    "ANN@example.com",
		"password": "another",
		"fullName": "Ann Again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.EqualValues(t, 1, app.count(app.store.Users, bson.M{}))
}

func TestRegisterValidation(t *testing.T) {
	app := newTestApp(t, false)

	tests := []struct {
		name  string
		body  gin.H
		field string
	}{
		{"bad email", gin.H{"email": "nope", "password": "secret1", "fullName": "Ann Author"}, "email"},
		{"short password", gin.H{"email": "ann@example.com", "password": "1234", "fullName": "Ann Author"}, "password"},
		{"short name", gin.H{"email": "ann@example.com", "password": "secret1", "fullName": "An"}, "fullName"},
		{"bad avatar", gin.H{"email": "ann@example.com", "password": "secret1", "fullName": "Ann Author", "avatarUrl": "not a url"}, "avatarUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodPost, "/auth/register", "", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			body := decode[struct {
				Errors []struct {
					Field string `json:"field"`
				} `json:"errors"`
			}](t, w)
			require.NotEmpty(t, body.Errors)
			assert.Equal(t, tt.field, body.Errors[0].Field)
		})
	}

	assert.Zero(t, app.count(app.store.Users, bson.M{}))
}

func TestLogin(t *testing.T) {
	app := newTestApp(t, false)
	_, userID := app.register("ann@example.com", "Ann Author")

	w := app.do(http.MethodPost, "/auth/login", "", gin.H{"email": " Ann@example.com  ", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode[authBody](t, w)
	assert.Equal(t, userID.Hex(), body.ID)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	me := app.do(http.MethodGet, "/auth/me", body.Token, nil)
	assert.Equal(t, http.StatusOK, me.Code)
}

func TestLoginRejected(t *testing.T) {
	app := newTestApp(t, false)
	app.register("ann@example.com", "Ann Author")

	tests := []struct {
		name string
		body gin.H
	}{
		{"wrong password", gin.H{"email": "ann@example.com", "password": "wrong-password"}},
		{"unknown email", gin.H{"email": "bob@example.com", "password": "secret1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodPost, "/auth/login", "", tt.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"message":"Invalid email or password"}`, w.Body.String())
		})
	}
}

func TestGetMe(t *testing.T) {
	app := newTestApp(t, false)
	token, userID := app.register("ann@example.com", "Ann Author")

	w := app.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	user := decode[models.User](t, w)
	assert.Equal(t, userID, user.ID)
	assert.Equal(t, "Ann Author", user.FullName)
	assert.Equal(t, "ann@example.com", user.Email)

	w = app.do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err := app.store.Users.DeleteOne(context.Background(), bson.M{"_id": userID})
	require.NoError(t, err)

	w = app.do(http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, w.Body.String())
}

func TestEmailFormatCheckedAfterTrim(t *testing.T) {
	app := newTestApp(t, false)

	tests := []struct {
		name string
		path string
		body gin.H
	}{
		{"register blank", "/auth/register", gin.H{"email": "   ", "password": "secret1", "fullName": "Ann Author"}},
		{"register inner space", "/auth/register", gin.H{"email": "ann @example.com", "password": "secret1", "fullName": "Ann Author"}},
		{"login bad format", "/auth/login", gin.H{"email": " not-an-email ", "password": "secret1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodPost, tt.path, "", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"message":"Invalid request body","errors":[{"field":"email","rule":"email"}]}`, w.Body.String())
		})
	}

	assert.Zero(t, app.count(app.store.Users, bson.M{}))
}
