package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nmarques/breaking-news-service/internal/domain"
)

// Store implements storage.Storage on MongoDB. Posts are single documents
// with likes and comments embedded, so every conditional mutation is one
// UpdateOne call and the server provides the per-document atomicity.
type Store struct {
	client *mongo.Client
	news   *mongo.Collection
	users  *mongo.Collection
}

// New connects, pings and selects the collections.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	db := client.Database(database)
	return &Store{
		client: client,
		news:   db.Collection("news"),
		users:  db.Collection("users"),
	}, nil
}

// === News ===

func (s *Store) CreateNews(ctx context.Context, news *domain.News) (*domain.News, error) {
	news.ID = uuid.NewString()
	news.CreatedAt = time.Now().UTC()
	if news.Likes == nil {
		news.Likes = []domain.Like{}
	}
	if news.Comments == nil {
		news.Comments = []domain.Comment{}
	}
	if _, err := s.news.InsertOne(ctx, news); err != nil {
		return nil, err
	}
	return news, nil
}

func (s *Store) GetNewsByID(ctx context.Context, id string) (*domain.News, error) {
	var news domain.News
	err := s.news.FindOne(ctx, bson.M{"_id": id}).Decode(&news)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return normalize(&news), nil
}

func (s *Store) ListNews(ctx context.Context, offset, limit int) ([]*domain.News, int, error) {
	total, err := s.news.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	items, err := s.findNews(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, int(total), nil
}

func (s *Store) TopNews(ctx context.Context) (*domain.News, error) {
	var news domain.News
	err := s.news.FindOne(ctx, bson.M{}, options.FindOne().SetSort(newestFirst)).Decode(&news)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return normalize(&news), nil
}

func (s *Store) SearchNewsByTitle(ctx context.Context, fragment string) ([]*domain.News, error) {
	filter := bson.M{"title": primitive.Regex{Pattern: regexp.QuoteMeta(fragment), Options: "i"}}
	return s.findNews(ctx, filter, options.Find().SetSort(newestFirst))
}

func (s *Store) ListNewsByAuthor(ctx context.Context, userID string) ([]*domain.News, error) {
	return s.findNews(ctx, bson.M{"author": userID}, options.Find().SetSort(newestFirst))
}

func (s *Store) UpdateNews(ctx context.Context, id, authorID string, upd domain.NewsUpdate) (bool, error) {
	set := bson.M{}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Text != nil {
		set["text"] = *upd.Text
	}
	if upd.Banner != nil {
		set["banner"] = *upd.Banner
	}
	if len(set) == 0 {
		return false, nil
	}

	// Matching on author as well makes the ownership check part of the same
	// atomic update.
	res, err := s.news.UpdateOne(ctx, bson.M{"_id": id, "author": authorID}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) DeleteNews(ctx context.Context, id, authorID string) (bool, error) {
	res, err := s.news.DeleteOne(ctx, bson.M{"_id": id, "author": authorID})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

// === Likes ===

func (s *Store) AddLike(ctx context.Context, newsID, userID string, at time.Time) (bool, error) {
	// The filter only matches when userID is absent from the like set, so
	// two concurrent adds by the same user cannot both modify the document.
	res, err := s.news.UpdateOne(ctx,
		bson.M{"_id": newsID, "likes.userId": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"likes": domain.Like{UserID: userID, CreatedAt: at}}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) RemoveLike(ctx context.Context, newsID, userID string) (bool, error) {
	res, err := s.news.UpdateOne(ctx,
		bson.M{"_id": newsID},
		bson.M{"$pull": bson.M{"likes": bson.M{"userId": userID}}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// === Comments ===

func (s *Store) AddComment(ctx context.Context, newsID string, comment domain.Comment) (bool, error) {
	res, err := s.news.UpdateOne(ctx,
		bson.M{"_id": newsID},
		bson.M{"$push": bson.M{"comments": comment}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *Store) RemoveComment(ctx context.Context, newsID, commentID, userID string) (bool, error) {
	res, err := s.news.UpdateOne(ctx,
		bson.M{"_id": newsID},
		bson.M{"$pull": bson.M{"comments": bson.M{"idComment": commentID, "userId": userID}}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.users.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return nil, domain.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var users []*domain.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	result := make(map[string]*domain.User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// === Helpers ===

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func (s *Store) findNews(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.News, error) {
	cursor, err := s.news.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var items []*domain.News
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []*domain.News{}
	}
	for _, n := range items {
		normalize(n)
	}
	return items, nil
}

// normalize keeps decoded nil slices rendering as empty arrays.
func normalize(n *domain.News) *domain.News {
	if n.Likes == nil {
		n.Likes = []domain.Like{}
	}
	if n.Comments == nil {
		n.Comments = []domain.Comment{}
	}
	return n
}
