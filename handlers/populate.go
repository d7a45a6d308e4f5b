package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blogapi/models"
)

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (h *Handler) userSummaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.UserSummary, error) {
	out := make(map[primitive.ObjectID]*models.UserSummary)
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return out, nil
	}

	cursor, err := h.store.Users.Find(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"fullName": 1, "avatarUrl": 1}),
	)
	if err != nil {
		return nil, err
	}

	var users []models.UserSummary
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}

	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

// populatePosts embeds the owning user's summary into every post.
func (h *Handler) populatePosts(ctx context.Context, posts []models.Post) error {
	ids := make([]primitive.ObjectID, len(posts))
	for i, p := range posts {
		ids[i] = p.UserID
	}

	users, err := h.userSummaries(ctx, ids)
	if err != nil {
		return err
	}

	for i := range posts {
		posts[i].User = users[posts[i].UserID]
	}
	return nil
}

// populateComments embeds the author's summary and, if withPost is set, the
// post title into every comment.
func (h *Handler) populateComments(ctx context.Context, comments []models.Comment, withPost bool) error {
	userIDs := make([]primitive.ObjectID, len(comments))
	postIDs := make([]primitive.ObjectID, len(comments))
	for i, c := range comments {
		userIDs[i] = c.UserID
		postIDs[i] = c.PostID
	}

	users, err := h.userSummaries(ctx, userIDs)
	if err != nil {
		return err
	}

	posts := make(map[primitive.ObjectID]*models.PostSummary)
	if withPost && len(comments) > 0 {
		cursor, err := h.store.Posts.Find(ctx,
			bson.M{"_id": bson.M{"$in": uniqueIDs(postIDs)}},
			options.Find().SetProjection(bson.M{"title": 1}),
		)
		if err != nil {
			return err
		}

		var summaries []models.PostSummary
		if err := cursor.All(ctx, &summaries); err != nil {
			return err
		}
		for i := range summaries {
			posts[summaries[i].ID] = &summaries[i]
		}
	}

	for i := range comments {
		comments[i].User = users[comments[i].UserID]
		if withPost {
			comments[i].Post = posts[comments[i].PostID]
		}
	}
	return nil
}
