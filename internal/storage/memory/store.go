// Package memory 非持久化的存储后端，进程退出后数据丢失。用于本地开发和测试。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"newsfeed/internal/models"
	"newsfeed/internal/storage"
)

type Store struct {
	mu sync.RWMutex

	users     map[uint]models.User
	interests map[uint]models.Interest
	articles  map[uint]models.Article
	// 模型里声明了 UserArticle，但目前没有接口写入，这里只参与级联删除
	userArticles map[uint]models.UserArticle

	nextUserID     uint
	nextInterestID uint
	nextArticleID  uint
}

var _ storage.Storage = (*Store)(nil)

func New() *Store {
	return &Store{
		users:          make(map[uint]models.User),
		interests:      make(map[uint]models.Interest),
		articles:       make(map[uint]models.Article),
		userArticles:   make(map[uint]models.UserArticle),
		nextUserID:     1,
		nextInterestID: 1,
		nextArticleID:  1,
	}
}

// Users -----------------------------------------------------------------------

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, in storage.NewUser) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == in.Username {
			return nil, storage.ErrDuplicate
		}
	}

	u := models.User{
		ID:           s.nextUserID,
		Username:     in.Username,
		Password:     in.Password,
		NewsAPIKey:   storage.Normalize(in.NewsAPIKey),
		GeminiAPIKey: storage.Normalize(in.GeminiAPIKey),
		CreatedAt:    time.Now(),
	}
	s.nextUserID++
	s.users[u.ID] = u
	return cloneUser(u), nil
}

func (s *Store) UpdateUser(_ context.Context, id uint, in storage.UserUpdate) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if in.NewsAPIKey != nil {
		u.NewsAPIKey = storage.Normalize(in.NewsAPIKey)
	}
	if in.GeminiAPIKey != nil {
		u.GeminiAPIKey = storage.Normalize(in.GeminiAPIKey)
	}
	s.users[id] = u
	return cloneUser(u), nil
}

func (s *Store) DeleteUser(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return false, nil
	}
	delete(s.users, id)

	for iid, in := range s.interests {
		if in.UserID == id {
			delete(s.interests, iid)
		}
	}
	for uaid, ua := range s.userArticles {
		if ua.UserID == id {
			delete(s.userArticles, uaid)
		}
	}
	return true, nil
}

// Interests -------------------------------------------------------------------

func (s *Store) GetInterests(_ context.Context, userID uint) ([]models.Interest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Interest, 0)
	for _, in := range s.interests {
		if in.UserID == userID {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) CreateInterest(_ context.Context, in storage.NewInterest) (*models.Interest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[in.UserID]; !ok {
		return nil, storage.ErrNotFound
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	interest := models.Interest{
		ID:        s.nextInterestID,
		UserID:    in.UserID,
		Name:      in.Name,
		Active:    active,
		CreatedAt: time.Now(),
	}
	s.nextInterestID++
	s.interests[interest.ID] = interest
	return &interest, nil
}

func (s *Store) UpdateInterest(_ context.Context, id uint, in storage.InterestUpdate) (*models.Interest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	interest, ok := s.interests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if in.Name != nil {
		interest.Name = *in.Name
	}
	if in.Active != nil {
		interest.Active = *in.Active
	}
	s.interests[id] = interest
	return &interest, nil
}

func (s *Store) DeleteInterest(_ context.Context, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.interests[id]; !ok {
		return false, nil
	}
	delete(s.interests, id)
	return true, nil
}

// Articles --------------------------------------------------------------------

func (s *Store) GetArticleByID(_ context.Context, id uint) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneArticle(a), nil
}

func (s *Store) GetArticleBySourceID(_ context.Context, sourceID string) (*models.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.findBySourceIDLocked(sourceID); ok {
		return cloneArticle(a), nil
	}
	return nil, storage.ErrNotFound
}

func (s *Store) SaveArticle(_ context.Context, in storage.NewArticle) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := in.ToModel()
	if a.SourceID != nil {
		if existing, ok := s.findBySourceIDLocked(*a.SourceID); ok {
			return cloneArticle(existing), nil
		}
	}

	a.ID = s.nextArticleID
	s.nextArticleID++
	s.articles[a.ID] = a
	return cloneArticle(a), nil
}

func (s *Store) UpdateArticleSummary(_ context.Context, id uint, summary string) (*models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.articles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	a.Summary = storage.Normalize(&summary)
	s.articles[id] = a
	return cloneArticle(a), nil
}

// 同一个 SourceID 只可能有一条（内存后端持锁查重），取 ID 最小的那条保持和数据库一致
func (s *Store) findBySourceIDLocked(sourceID string) (models.Article, bool) {
	var (
		found models.Article
		ok    bool
	)
	for _, a := range s.articles {
		if a.SourceID == nil || *a.SourceID != sourceID {
			continue
		}
		if !ok || a.ID < found.ID {
			found, ok = a, true
		}
	}
	return found, ok
}

func cloneUser(u models.User) *models.User {
	u.NewsAPIKey = cloneString(u.NewsAPIKey)
	u.GeminiAPIKey = cloneString(u.GeminiAPIKey)
	return &u
}

func cloneArticle(a models.Article) *models.Article {
	a.Description = cloneString(a.Description)
	a.Content = cloneString(a.Content)
	a.Source = cloneString(a.Source)
	a.SourceID = cloneString(a.SourceID)
	a.URL = cloneString(a.URL)
	a.URLToImage = cloneString(a.URLToImage)
	a.Category = cloneString(a.Category)
	a.Summary = cloneString(a.Summary)
	if a.PublishedAt != nil {
		t := *a.PublishedAt
		a.PublishedAt = &t
	}
	return &a
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
