package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogapi/models"
)

const (
	lastTagsPosts = 5
	lastTagsLimit = 5

	postNotFound = "Post not found"
)

type PostRequest struct {
	Title    string `json:"title" binding:"required,min=3"`
	Text     string `json:"text" binding:"required,min=3"`
	Tags     string `json:"tags"`
	ImageURL string `json:"imageUrl"`
}

var (
	newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	mostViewed  = bson.D{{Key: "viewsCount", Value: -1}, {Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
)

func (h *Handler) findPosts(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]models.Post, error) {
	cursor, err := h.store.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	for i := range posts {
		normalizePost(&posts[i])
	}

	if err := h.populatePosts(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// GetAllPosts lists every post, newest first or most viewed first with
// ?sortBy=views.
func (h *Handler) GetAllPosts(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	sort := newestFirst
	if c.Query("sortBy") == "views" {
		sort = mostViewed
	}

	posts, err := h.findPosts(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		fail(c, "GetAllPosts", err, postNotFound, "Could not fetch posts")
		return
	}

	c.JSON(http.StatusOK, posts)
}

// GetPost returns one post and counts the view.
func (h *Handler) GetPost(c *gin.Context) {
	postID, ok := pathID(c, "id", postNotFound)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var post models.Post
	err := h.store.Posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"viewsCount": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = ErrNotFound
	}
	if err != nil {
		fail(c, "GetPost", err, postNotFound, "Could not fetch post")
		return
	}

	normalizePost(&post)
	posts := []models.Post{post}
	if err := h.populatePosts(ctx, posts); err != nil {
		fail(c, "GetPost", err, postNotFound, "Could not fetch post")
		return
	}

	c.JSON(http.StatusOK, posts[0])
}

func (h *Handler) CreatePost(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	var req PostRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	now := h.timestamp()
	post := models.Post{
		ID:         primitive.NewObjectID(),
		Title:      req.Title,
		Text:       req.Text,
		ImageURL:   req.ImageURL,
		Tags:       splitTags(req.Tags),
		UserID:     userID,
		ViewsCount: 0,
		Comments:   []primitive.ObjectID{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := h.store.Posts.InsertOne(ctx, post); err != nil {
		fail(c, "CreatePost", err, postNotFound, "Could not create post")
		return
	}

	c.JSON(http.StatusCreated, post)
}

// normalizePost keeps empty lists as [] in responses.
func normalizePost(p *models.Post) {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Comments == nil {
		p.Comments = []primitive.ObjectID{}
	}
}

// ownPost checks that the post exists and belongs to userID.
func (h *Handler) ownPost(ctx context.Context, postID, userID primitive.ObjectID) error {
	var post models.Post
	err := h.store.Posts.FindOne(ctx,
		bson.M{"_id": postID},
		options.FindOne().SetProjection(bson.M{"user": 1}),
	).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrForbidden
	}
	return nil
}

// UpdatePost replaces the editable fields of a post owned by the caller.
// Views and comments are left alone.
func (h *Handler) UpdatePost(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	postID, ok := pathID(c, "id", postNotFound)
	if !ok {
		return
	}

	var req PostRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.ownPost(ctx, postID, userID); err != nil {
		fail(c, "UpdatePost", err, postNotFound, "Could not update post")
		return
	}

	update := bson.M{
		"$set": bson.M{
			"title":     req.Title,
			"text":      req.Text,
			"tags":      splitTags(req.Tags),
			"user":      userID,
			"updatedAt": h.timestamp(),
		},
	}
	if req.ImageURL != "" {
		update["$set"].(bson.M)["imageUrl"] = req.ImageURL
	} else {
		update["$unset"] = bson.M{"imageUrl": ""}
	}

	res, err := h.store.Posts.UpdateOne(ctx, bson.M{"_id": postID}, update)
	if err == nil && res.MatchedCount == 0 {
		err = ErrNotFound
	}
	if err != nil {
		fail(c, "UpdatePost", err, postNotFound, "Could not update post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeletePost removes a post owned by the caller together with its comments.
func (h *Handler) DeletePost(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	postID, ok := pathID(c, "id", postNotFound)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err := h.store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := h.ownPost(ctx, postID, userID); err != nil {
			return err
		}

		res, err := h.store.Posts.DeleteOne(ctx, bson.M{"_id": postID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}

		_, err = h.store.Comments.DeleteMany(ctx, bson.M{"post": postID})
		return err
	})
	if err != nil {
		fail(c, "DeletePost", err, postNotFound, "Could not delete post")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetLastTags returns up to five distinct tags of the five newest posts.
func (h *Handler) GetLastTags(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	cursor, err := h.store.Posts.Find(ctx, bson.M{}, options.Find().
		SetSort(newestFirst).
		SetLimit(lastTagsPosts).
		SetProjection(bson.M{"tags": 1}))
	if err != nil {
		fail(c, "GetLastTags", err, postNotFound, "Could not fetch tags")
		return
	}

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		fail(c, "GetLastTags", err, postNotFound, "Could not fetch tags")
		return
	}

	lists := make([][]string, len(posts))
	for i, p := range posts {
		lists[i] = p.Tags
	}

	c.JSON(http.StatusOK, distinctTags(lists, lastTagsLimit))
}

// GetPostsByTag lists the posts carrying the tag, most viewed first.
func (h *Handler) GetPostsByTag(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	posts, err := h.findPosts(ctx, bson.M{"tags": c.Param("tag")}, options.Find().SetSort(mostViewed))
	if err != nil {
		fail(c, "GetPostsByTag", err, postNotFound, "Could not fetch posts by tag")
		return
	}

	c.JSON(http.StatusOK, posts)
}
