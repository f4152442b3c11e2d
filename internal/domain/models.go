package domain

import "time"

// News is the content aggregate. Likes and comments live embedded in the
// document so every mutation on them is a single-document operation.
type News struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Text      string    `json:"text" bson:"text"`
	Banner    string    `json:"banner" bson:"banner"`
	AuthorID  string    `json:"authorId" bson:"author"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	Likes     []Like    `json:"likes" bson:"likes"`
	Comments  []Comment `json:"comments" bson:"comments"`
}

// Like marks that a user liked a post. At most one entry per UserID may
// exist in a post's like set.
type Like struct {
	UserID    string    `json:"userId" bson:"userId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Comment is one entry of a post's comment ledger. IDs are uuids, unique
// within the post.
type Comment struct {
	ID        string    `json:"id" bson:"idComment"`
	UserID    string    `json:"userId" bson:"userId"`
	Text      string    `json:"text" bson:"comment"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// User is owned by the accounts system; this service only reads it to
// render the author projection.
type User struct {
	ID        string `json:"id" bson:"_id"`
	Name      string `json:"name" bson:"name"`
	Username  string `json:"username" bson:"username"`
	AvatarURL string `json:"avatar" bson:"avatar"`
}

// NewsUpdate is a partial update of a post's mutable fields. Nil fields are
// left untouched.
type NewsUpdate struct {
	Title  *string
	Text   *string
	Banner *string
}

func (u NewsUpdate) Empty() bool {
	return u.Title == nil && u.Text == nil && u.Banner == nil
}
