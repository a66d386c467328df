// Package domain holds the persistent entities shared across services.
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// UserRef is the denormalized user snapshot embedded in owned documents.
type UserRef struct {
	ID       bson.ObjectID `bson:"_id" json:"_id"`
	Fullname string        `bson:"fullname" json:"fullname"`
	ImgURL   string        `bson:"imgUrl,omitempty" json:"imgUrl,omitempty"`
}

// Song is an embedded document; its id is the YouTube video id, not an ObjectID.
type Song struct {
	ID      string    `bson:"id" json:"id"`
	Title   string    `bson:"title" json:"title"`
	Artist  string    `bson:"artist,omitempty" json:"artist,omitempty"`
	ImgURL  string    `bson:"imgUrl,omitempty" json:"imgUrl,omitempty"`
	URL     string    `bson:"url,omitempty" json:"url,omitempty"`
	AddedBy *UserRef  `bson:"addedBy,omitempty" json:"addedBy,omitempty"`
	AddedAt time.Time `bson:"addedAt,omitempty" json:"addedAt,omitempty"`
}

// ChatMsg is a persisted station chat message.
type ChatMsg struct {
	ID   string    `bson:"id" json:"id"`
	From string    `bson:"from" json:"from"`
	Txt  string    `bson:"txt" json:"txt"`
	At   time.Time `bson:"at,omitempty" json:"at,omitempty"`
}

type Station struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name         string          `bson:"name" json:"name"`
	Description  string          `bson:"description,omitempty" json:"description,omitempty"`
	ImgURL       string          `bson:"imgUrl,omitempty" json:"imgUrl,omitempty"`
	Tags         []string        `bson:"tags,omitempty" json:"tags,omitempty"`
	Owner        *UserRef        `bson:"owner,omitempty" json:"owner,omitempty"`
	Songs        []Song          `bson:"songs" json:"songs"`
	Msgs         []ChatMsg       `bson:"msgs,omitempty" json:"msgs,omitempty"`
	LikedByUsers []bson.ObjectID `bson:"likedByUsers,omitempty" json:"likedByUsers,omitempty"`
	CreatedAt    time.Time       `bson:"-" json:"createdAt,omitempty"`
}

// User's password hash never leaves the server; it is excluded from JSON and
// additionally stripped by the user service before reads are returned.
type User struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username     string        `bson:"username" json:"username"`
	Password     string        `bson:"password,omitempty" json:"-"`
	Fullname     string        `bson:"fullname" json:"fullname"`
	ImgURL       string        `bson:"imgUrl,omitempty" json:"imgUrl,omitempty"`
	IsAdmin      bool          `bson:"isAdmin" json:"isAdmin"`
	Score        int           `bson:"score" json:"score"`
	LikedSongs   []Song        `bson:"likedSongs" json:"likedSongs"`
	GivenReviews []Review      `bson:"-" json:"givenReviews,omitempty"`
	CreatedAt    time.Time     `bson:"-" json:"createdAt,omitempty"`
}

type Review struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Txt       string        `bson:"txt" json:"txt"`
	Rating    int           `bson:"rating,omitempty" json:"rating,omitempty"`
	ByUser    *UserRef      `bson:"byUser,omitempty" json:"byUser,omitempty"`
	AboutUser *UserRef      `bson:"aboutUser,omitempty" json:"aboutUser,omitempty"`
	CreatedAt time.Time     `bson:"-" json:"createdAt,omitempty"`
}

// StationFilter narrows station queries. PageIdx is nil when paging is off.
type StationFilter struct {
	Txt       string
	PageIdx   *int
	SortField string
	SortDir   int
}

type UserFilter struct {
	Txt      string
	MinScore int
}

// ReviewFilter matches on the hex ids of either side of a review.
type ReviewFilter struct {
	ByUserID    string
	AboutUserID string
}
