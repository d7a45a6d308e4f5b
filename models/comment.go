package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Text      string             `bson:"text" json:"text"`
	UserID    primitive.ObjectID `bson:"user" json:"userId"`
	PostID    primitive.ObjectID `bson:"post" json:"postId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
	User      *UserSummary       `bson:"-" json:"user,omitempty"`
	Post      *PostSummary       `bson:"-" json:"post,omitempty"`
}
