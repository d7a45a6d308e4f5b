package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Post struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title      string               `bson:"title" json:"title"`
	Text       string               `bson:"text" json:"text"`
	ImageURL   string               `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Tags       []string             `bson:"tags" json:"tags"`
	UserID     primitive.ObjectID   `bson:"user" json:"userId"`
	ViewsCount int64                `bson:"viewsCount" json:"viewsCount"`
	Comments   []primitive.ObjectID `bson:"comments" json:"comments"` // mirrors comments.post
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
	User       *UserSummary         `bson:"-" json:"user,omitempty"` // Populated in response only
}

type PostSummary struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Title string             `bson:"title" json:"title"`
}
