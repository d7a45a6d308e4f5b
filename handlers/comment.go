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
	"blogapi/websocket"
)

const (
	lastCommentsLimit = 3

	commentNotFound = "Comment not found"
)

type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

var oldestFirst = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

func (h *Handler) findComments(ctx context.Context, filter interface{}, opts *options.FindOptions, withPost bool) ([]models.Comment, error) {
	cursor, err := h.store.Comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	if err := h.populateComments(ctx, comments, withPost); err != nil {
		return nil, err
	}
	return comments, nil
}

func (h *Handler) postComments(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	return h.findComments(ctx, bson.M{"post": postID}, options.Find().SetSort(oldestFirst), true)
}

// GetLastComments returns the three newest comments, newest first.
func (h *Handler) GetLastComments(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	comments, err := h.findComments(ctx, bson.M{}, options.Find().
		SetSort(newestFirst).
		SetLimit(lastCommentsLimit), false)
	if err != nil {
		fail(c, "GetLastComments", err, commentNotFound, "Could not fetch comments")
		return
	}

	c.JSON(http.StatusOK, comments)
}

// GetPostComments lists the comments of a post in the order they were written.
func (h *Handler) GetPostComments(c *gin.Context) {
	postID, ok := pathID(c, "postId", postNotFound)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comments, err := h.postComments(ctx, postID)
	if err != nil {
		fail(c, "GetPostComments", err, postNotFound, "Could not fetch comments")
		return
	}

	c.JSON(http.StatusOK, comments)
}

// CreateComment adds a comment to the post, records it on the post and
// answers with the post's full comment list.
func (h *Handler) CreateComment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	postID, ok := pathID(c, "postId", postNotFound)
	if !ok {
		return
	}

	var req CommentRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	now := h.timestamp()
	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Text:      req.Text,
		UserID:    userID,
		PostID:    postID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := h.store.WithTransaction(ctx, func(ctx context.Context) error {
		n, err := h.store.Posts.CountDocuments(ctx, bson.M{"_id": postID})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		if _, err := h.store.Comments.InsertOne(ctx, comment); err != nil {
			return err
		}

		res, err := h.store.Posts.UpdateOne(ctx,
			bson.M{"_id": postID},
			bson.M{"$push": bson.M{"comments": comment.ID}},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		fail(c, "CreateComment", err, postNotFound, "Could not add comment")
		return
	}

	comments, err := h.postComments(ctx, postID)
	if err != nil {
		fail(c, "CreateComment", err, postNotFound, "Could not add comment")
		return
	}

	for i := range comments {
		if comments[i].ID == comment.ID {
			h.feed.Broadcast(websocket.CommentCreated, postID.Hex(), comments[i])
			break
		}
	}

	c.JSON(http.StatusCreated, comments)
}

// ownComment loads the comment and checks that it belongs to userID.
func (h *Handler) ownComment(ctx context.Context, commentID, userID primitive.ObjectID) (*models.Comment, error) {
	var comment models.Comment
	err := h.store.Comments.FindOne(ctx, bson.M{"_id": commentID}).Decode(&comment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, ErrForbidden
	}
	return &comment, nil
}

func (h *Handler) UpdateComment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	commentID, ok := pathID(c, "commentId", commentNotFound)
	if !ok {
		return
	}

	var req CommentRequest
	if !bind(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.ownComment(ctx, commentID, userID)
	if err != nil {
		fail(c, "UpdateComment", err, commentNotFound, "Could not edit comment")
		return
	}

	res, err := h.store.Comments.UpdateOne(ctx,
		bson.M{"_id": commentID},
		bson.M{"$set": bson.M{"text": req.Text, "updatedAt": h.timestamp()}},
	)
	if err == nil && res.MatchedCount == 0 {
		err = ErrNotFound
	}
	if err != nil {
		fail(c, "UpdateComment", err, commentNotFound, "Could not edit comment")
		return
	}

	h.feed.Broadcast(websocket.CommentUpdated, comment.PostID.Hex(), gin.H{"id": commentID, "text": req.Text})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteComment removes the comment and drops it from its post's list. The
// response is sent only after both steps finished.
func (h *Handler) DeleteComment(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	commentID, ok := pathID(c, "commentId", commentNotFound)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var postID primitive.ObjectID
	err := h.store.WithTransaction(ctx, func(ctx context.Context) error {
		comment, err := h.ownComment(ctx, commentID, userID)
		if err != nil {
			return err
		}
		postID = comment.PostID

		res, err := h.store.Comments.DeleteOne(ctx, bson.M{"_id": commentID})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrNotFound
		}

		_, err = h.store.Posts.UpdateOne(ctx,
			bson.M{"_id": postID},
			bson.M{"$pull": bson.M{"comments": commentID}},
		)
		return err
	})
	if err != nil {
		fail(c, "DeleteComment", err, commentNotFound, "Could not delete comment")
		return
	}

	h.feed.Broadcast(websocket.CommentDeleted, postID.Hex(), gin.H{"id": commentID})

	c.JSON(http.StatusOK, gin.H{"success": true})
}
