package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/256dpi/lungo"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"blogapi/database"
	"blogapi/handlers"
	"blogapi/models"
	"blogapi/routes"
	"blogapi/storage"
)

var testSecret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

type feedEvent struct {
	Type    string
	PostID  string
	Payload interface{}
}

type recordingFeed struct {
	mu     sync.Mutex
	events []feedEvent
}

func (f *recordingFeed) Broadcast(eventType, postID string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, feedEvent{Type: eventType, PostID: postID, Payload: payload})
}

func (f *recordingFeed) Events() []feedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]feedEvent(nil), f.events...)
}

type testApp struct {
	t         *testing.T
	store     *database.Store
	router    *gin.Engine
	feed      *recordingFeed
	uploadDir string
}

func newTestApp(t *testing.T, transactions bool) *testApp {
	t.Helper()

	ctx := context.Background()
	store, err := database.OpenMemory(ctx, "blog-test", transactions)
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(ctx))
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	uploadDir := t.TempDir()
	images, err := storage.NewDisk(uploadDir)
	require.NoError(t, err)

	feed := &recordingFeed{}
	h := handlers.New(handlers.Options{
		Store:      store,
		Images:     images,
		Feed:       feed,
		JWTSecret:  testSecret,
		JWTTTL:     time.Hour,
		BcryptCost: bcrypt.MinCost,
	})

	router := routes.SetupRouter(h, routes.Options{
		JWTSecret:     testSecret,
		AuthRateLimit: 1000,
		UploadDir:     uploadDir,
	})

	return &testApp{t: t, store: store, router: router, feed: feed, uploadDir: uploadDir}
}

func (a *testApp) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type authBody struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

// register creates a user and returns its token and id.
func (a *testApp) register(email, name string) (string, primitive.ObjectID) {
	a.t.Helper()

	w := a.do(http.MethodPost, "/auth/register", "", gin.H{
		"email":    email,
		"password": "secret1",
		"fullName": name,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	body := decode[authBody](a.t, w)
	id, err := primitive.ObjectIDFromHex(body.ID)
	require.NoError(a.t, err)
	return body.Token, id
}

func (a *testApp) createPost(token, title, tags string) models.Post {
	a.t.Helper()

	w := a.do(http.MethodPost, "/posts", token, gin.H{
		"title": title,
		"text":  "some text for " + title,
		"tags":  tags,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Post](a.t, w)
}

func (a *testApp) createComment(token string, postID primitive.ObjectID, text string) []models.Comment {
	a.t.Helper()

	w := a.do(http.MethodPost, "/comments/"+postID.Hex(), token, gin.H{"text": text})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[[]models.Comment](a.t, w)
}

func (a *testApp) storedPost(id primitive.ObjectID) models.Post {
	a.t.Helper()

	var post models.Post
	require.NoError(a.t, a.store.Posts.FindOne(context.Background(), bson.M{"_id": id}).Decode(&post))
	return post
}

func (a *testApp) count(coll lungo.ICollection, filter bson.M) int64 {
	a.t.Helper()

	n, err := coll.CountDocuments(context.Background(), filter)
	require.NoError(a.t, err)
	return n
}

// assertMirrored checks that the post's comment list matches the comments
// pointing at it.
func (a *testApp) assertMirrored(postID primitive.ObjectID) {
	a.t.Helper()

	post := a.storedPost(postID)
	n := a.count(a.store.Comments, bson.M{"post": postID})
	require.EqualValues(a.t, n, len(post.Comments))
}
