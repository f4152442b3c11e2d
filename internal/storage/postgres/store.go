package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/nmarques/breaking-news-service/internal/domain"
)

// Store implements storage.Storage on PostgreSQL. The embedded like set and
// comment ledger become join tables; the like-set uniqueness invariant is
// enforced by the composite primary key, so the guarded add is a single
// INSERT ... ON CONFLICT DO NOTHING.
type Store struct {
	db *gorm.DB
}

type newsRow struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Title     string    `gorm:"type:varchar(255);not null"`
	Text      string    `gorm:"type:text;not null"`
	Banner    string    `gorm:"type:text;not null"`
	AuthorID  string    `gorm:"type:varchar(255);not null;index"`
	CreatedAt time.Time `gorm:"not null"`

	Likes    []likeRow    `gorm:"foreignKey:NewsID;constraint:OnDelete:CASCADE"`
	Comments []commentRow `gorm:"foreignKey:NewsID;constraint:OnDelete:CASCADE"`
}

func (newsRow) TableName() string { return "news" }

type likeRow struct {
	NewsID    string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:varchar(255);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

func (likeRow) TableName() string { return "news_likes" }

type commentRow struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	NewsID    string    `gorm:"type:uuid;not null;index"`
	UserID    string    `gorm:"type:varchar(255);not null"`
	Text      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (commentRow) TableName() string { return "news_comments" }

type userRow struct {
	ID        string `gorm:"type:varchar(255);primaryKey"`
	Name      string `gorm:"type:varchar(255);not null"`
	Username  string `gorm:"type:varchar(255);not null"`
	AvatarURL string `gorm:"type:text"`
}

func (userRow) TableName() string { return "users" }

// New connects and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&newsRow{}, &likeRow{}, &commentRow{}, &userRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// === News ===

func (s *Store) CreateNews(ctx context.Context, news *domain.News) (*domain.News, error) {
	news.ID = uuid.NewString()
	news.CreatedAt = time.Now().UTC()
	row := newsRow{
		ID:        news.ID,
		Title:     news.Title,
		Text:      news.Text,
		Banner:    news.Banner,
		AuthorID:  news.AuthorID,
		CreatedAt: news.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	if news.Likes == nil {
		news.Likes = []domain.Like{}
	}
	if news.Comments == nil {
		news.Comments = []domain.Comment{}
	}
	return news, nil
}

func (s *Store) GetNewsByID(ctx context.Context, id string) (*domain.News, error) {
	var row newsRow
	err := s.preloaded(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomain(&row), nil
}

func (s *Store) ListNews(ctx context.Context, offset, limit int) ([]*domain.News, int, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&newsRow{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*newsRow
	err := s.preloaded(ctx).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toDomainList(rows), int(total), nil
}

func (s *Store) TopNews(ctx context.Context) (*domain.News, error) {
	var row newsRow
	err := s.preloaded(ctx).Order("created_at DESC, id DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toDomain(&row), nil
}

func (s *Store) SearchNewsByTitle(ctx context.Context, fragment string) ([]*domain.News, error) {
	var rows []*newsRow
	err := s.preloaded(ctx).
		Where("title ILIKE ?", "%"+escapeLike(fragment)+"%").
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func (s *Store) ListNewsByAuthor(ctx context.Context, userID string) ([]*domain.News, error) {
	var rows []*newsRow
	err := s.preloaded(ctx).
		Where("author_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toDomainList(rows), nil
}

func (s *Store) UpdateNews(ctx context.Context, id, authorID string, upd domain.NewsUpdate) (bool, error) {
	fields := map[string]interface{}{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Text != nil {
		fields["text"] = *upd.Text
	}
	if upd.Banner != nil {
		fields["banner"] = *upd.Banner
	}
	if len(fields) == 0 {
		return false, nil
	}

	// Ownership is part of the WHERE clause, so the check and the write are
	// one atomic statement.
	res := s.db.WithContext(ctx).
		Model(&newsRow{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DeleteNews(ctx context.Context, id, authorID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND author_id = ?", id, authorID).
		Delete(&newsRow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// === Likes ===

func (s *Store) AddLike(ctx context.Context, newsID, userID string, at time.Time) (bool, error) {
	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&newsRow{}).Where("id = ?", newsID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&likeRow{NewsID: newsID, UserID: userID, CreatedAt: at})
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected > 0
		return nil
	})
	return added, err
}

func (s *Store) RemoveLike(ctx context.Context, newsID, userID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("news_id = ? AND user_id = ?", newsID, userID).
		Delete(&likeRow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// === Comments ===

func (s *Store) AddComment(ctx context.Context, newsID string, comment domain.Comment) (bool, error) {
	var ok bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&newsRow{}).Where("id = ?", newsID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		row := commentRow{
			ID:        comment.ID,
			NewsID:    newsID,
			UserID:    comment.UserID,
			Text:      comment.Text,
			CreatedAt: comment.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		ok = true
		return nil
	})
	return ok, err
}

func (s *Store) RemoveComment(ctx context.Context, newsID, commentID, userID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("news_id = ? AND id = ? AND user_id = ?", newsID, commentID, userID).
		Delete(&commentRow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	row := userRow{ID: user.ID, Name: user.Name, Username: user.Username, AvatarURL: user.AvatarURL}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, domain.ErrAlreadyExists
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.User{ID: row.ID, Name: row.Name, Username: row.Username, AvatarURL: row.AvatarURL}, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]*domain.User, len(rows))
	for _, r := range rows {
		result[r.ID] = &domain.User{ID: r.ID, Name: r.Name, Username: r.Username, AvatarURL: r.AvatarURL}
	}
	return result, nil
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// === Helpers ===

func (s *Store) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func toDomain(row *newsRow) *domain.News {
	n := &domain.News{
		ID:        row.ID,
		Title:     row.Title,
		Text:      row.Text,
		Banner:    row.Banner,
		AuthorID:  row.AuthorID,
		CreatedAt: row.CreatedAt,
		Likes:     make([]domain.Like, 0, len(row.Likes)),
		Comments:  make([]domain.Comment, 0, len(row.Comments)),
	}
	for _, l := range row.Likes {
		n.Likes = append(n.Likes, domain.Like{UserID: l.UserID, CreatedAt: l.CreatedAt})
	}
	for _, c := range row.Comments {
		n.Comments = append(n.Comments, domain.Comment{ID: c.ID, UserID: c.UserID, Text: c.Text, CreatedAt: c.CreatedAt})
	}
	return n
}

func toDomainList(rows []*newsRow) []*domain.News {
	result := make([]*domain.News, 0, len(rows))
	for _, r := range rows {
		result = append(result, toDomain(r))
	}
	return result
}

// escapeLike neutralizes LIKE metacharacters so the search stays a plain
// substring match.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
