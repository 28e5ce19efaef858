package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================
//
// fakeStore implements every repository interface in memory. Uniqueness is
// enforced under the mutex, the way the database enforces it, so races past
// a service pre-check end in a ConstraintViolation.

type fakeStore struct {
	mu sync.Mutex

	nextID     int64
	users      map[int64]*model.User
	categories map[int64]*model.Category
	genres     map[int64]*model.Genre
	titles     map[int64]*model.Title
	reviews    map[int64]*model.Review
	comments   map[int64]*model.Comment

	// failNext makes the next repository call return this error.
	failNext error
}

var (
	_ repository.UserRepository     = (*fakeStore)(nil)
	_ repository.CategoryRepository = (*fakeStore)(nil)
	_ repository.GenreRepository    = (*fakeStore)(nil)
	_ repository.TitleRepository    = (*fakeStore)(nil)
	_ repository.ReviewRepository   = (*fakeStore)(nil)
	_ repository.CommentRepository  = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]*model.User{},
		categories: map[int64]*model.Category{},
		genres:     map[int64]*model.Genre{},
		titles:     map[int64]*model.Title{},
		reviews:    map[int64]*model.Review{},
		comments:   map[int64]*model.Comment{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func page[T any](items []T, opts repository.ListOptions) []T {
	opts = opts.Normalize()
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}

func idStr(id int64) string { return strconv.FormatInt(id, 10) }

// ----- users -----

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	for _, existing := range f.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return apperror.ConstraintViolation("users.username", errors.New("UNIQUE"))
		}
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	u.ID = f.id()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", idStr(id))
	}
	out := *u
	return &out, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeStore) ListUsers(_ context.Context, search string, opts repository.ListOptions) ([]model.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.User
	for _, id := range sortedIDs(f.users) {
		if u := f.users[id]; strings.Contains(strings.ToLower(u.Username), strings.ToLower(search)) {
			all = append(all, *u)
		}
	}
	return page(all, opts), len(all), nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if _, ok := f.users[u.ID]; !ok {
		return apperror.NotFound("user", idStr(u.ID))
	}
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if u.Username == username {
			delete(f.users, id)
			return nil
		}
	}
	return apperror.NotFound("user", username)
}

func (f *fakeStore) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := f.GetUserByUsername(ctx, username)
	return err == nil, nil
}

func (f *fakeStore) EmailExists(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// ----- categories & genres -----

func (f *fakeStore) CreateCategory(_ context.Context, c *model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.categories {
		if existing.Slug == c.Slug {
			return apperror.ConstraintViolation("categories.slug", errors.New("UNIQUE"))
		}
	}
	c.ID = f.id()
	stored := *c
	f.categories[c.ID] = &stored
	return nil
}

func (f *fakeStore) GetCategoryBySlug(_ context.Context, slug string) (*model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.categories {
		if c.Slug == slug {
			out := *c
			return &out, nil
		}
	}
	return nil, apperror.NotFound("category", slug)
}

func (f *fakeStore) ListCategories(_ context.Context, search string, opts repository.ListOptions) ([]model.Category, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Category
	for _, id := range sortedIDs(f.categories) {
		if c := f.categories[id]; strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			all = append(all, *c)
		}
	}
	return page(all, opts), len(all), nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, c := range f.categories {
		if c.Slug == slug {
			delete(f.categories, id)
			for _, t := range f.titles {
				if t.Category != nil && t.Category.ID == id {
					t.Category = nil
				}
			}
			return nil
		}
	}
	return apperror.NotFound("category", slug)
}

func (f *fakeStore) CategorySlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := f.GetCategoryBySlug(ctx, slug)
	return err == nil, nil
}

func (f *fakeStore) CreateGenre(_ context.Context, g *model.Genre) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.genres {
		if existing.Slug == g.Slug {
			return apperror.ConstraintViolation("genres.slug", errors.New("UNIQUE"))
		}
	}
	g.ID = f.id()
	stored := *g
	f.genres[g.ID] = &stored
	return nil
}

func (f *fakeStore) GetGenreBySlug(_ context.Context, slug string) (*model.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.genres {
		if g.Slug == slug {
			out := *g
			return &out, nil
		}
	}
	return nil, apperror.NotFound("genre", slug)
}

func (f *fakeStore) ListGenres(_ context.Context, search string, opts repository.ListOptions) ([]model.Genre, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Genre
	for _, id := range sortedIDs(f.genres) {
		if g := f.genres[id]; strings.Contains(strings.ToLower(g.Name), strings.ToLower(search)) {
			all = append(all, *g)
		}
	}
	return page(all, opts), len(all), nil
}

func (f *fakeStore) DeleteGenre(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, g := range f.genres {
		if g.Slug == slug {
			delete(f.genres, id)
			return nil
		}
	}
	return apperror.NotFound("genre", slug)
}

func (f *fakeStore) GenreSlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := f.GetGenreBySlug(ctx, slug)
	return err == nil, nil
}

// ----- titles -----

func (f *fakeStore) CreateTitle(_ context.Context, t *model.Title) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.id()
	stored := *t
	stored.Genres = append([]model.Genre{}, t.Genres...)
	f.titles[t.ID] = &stored
	return nil
}

// withRating computes the truncated mean of the title's review scores.
func (f *fakeStore) withRating(t model.Title) model.Title {
	sum, n := 0, 0
	for _, r := range f.reviews {
		if r.TitleID == t.ID {
			sum += r.Score
			n++
		}
	}
	t.Rating = nil
	if n > 0 {
		avg := sum / n
		t.Rating = &avg
	}
	return t
}

func (f *fakeStore) GetTitle(_ context.Context, id int64) (*model.Title, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.titles[id]
	if !ok {
		return nil, apperror.NotFound("title", idStr(id))
	}
	out := f.withRating(*t)
	return &out, nil
}

func (f *fakeStore) ListTitles(_ context.Context, filter repository.TitleFilter, opts repository.ListOptions) ([]model.Title, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Title
	for _, id := range sortedIDs(f.titles) {
		t := f.titles[id]
		if filter.Category != "" && (t.Category == nil || t.Category.Slug != filter.Category) {
			continue
		}
		if filter.Year != nil && t.Year != *filter.Year {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Genre != "" {
			found := false
			for _, g := range t.Genres {
				found = found || g.Slug == filter.Genre
			}
			if !found {
				continue
			}
		}
		all = append(all, f.withRating(*t))
	}
	return page(all, opts), len(all), nil
}

func (f *fakeStore) UpdateTitle(_ context.Context, t *model.Title) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.titles[t.ID]; !ok {
		return apperror.NotFound("title", idStr(t.ID))
	}
	stored := *t
	stored.Genres = append([]model.Genre{}, t.Genres...)
	f.titles[t.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteTitle(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.titles[id]; !ok {
		return apperror.NotFound("title", idStr(id))
	}
	delete(f.titles, id)
	return nil
}

// ----- reviews -----

func (f *fakeStore) CreateReview(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reviews {
		if existing.AuthorID == r.AuthorID && existing.TitleID == r.TitleID {
			return apperror.ConstraintViolation("reviews.author_id, reviews.title_id", errors.New("UNIQUE"))
		}
	}
	r.ID = f.id()
	stored := *r
	f.reviews[r.ID] = &stored
	return nil
}

func (f *fakeStore) GetReview(_ context.Context, titleID, reviewID int64) (*model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[reviewID]
	if !ok || r.TitleID != titleID {
		return nil, apperror.NotFound("review", idStr(reviewID))
	}
	out := *r
	return &out, nil
}

func (f *fakeStore) ListReviews(_ context.Context, titleID int64, opts repository.ListOptions) ([]model.Review, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Review
	for _, id := range sortedIDs(f.reviews) {
		if r := f.reviews[id]; r.TitleID == titleID {
			all = append(all, *r)
		}
	}
	return page(all, opts), len(all), nil
}

func (f *fakeStore) UpdateReview(_ context.Context, r *model.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reviews[r.ID]; !ok {
		return apperror.NotFound("review", idStr(r.ID))
	}
	stored := *r
	f.reviews[r.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteReview(_ context.Context, titleID, reviewID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reviews[reviewID]; !ok || r.TitleID != titleID {
		return apperror.NotFound("review", idStr(reviewID))
	}
	delete(f.reviews, reviewID)
	return nil
}

func (f *fakeStore) ReviewExists(_ context.Context, authorID, titleID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.AuthorID == authorID && r.TitleID == titleID {
			return true, nil
		}
	}
	return false, nil
}

// ----- comments -----

func (f *fakeStore) CreateComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.id()
	stored := *c
	f.comments[c.ID] = &stored
	return nil
}

func (f *fakeStore) GetComment(_ context.Context, reviewID, commentID int64) (*model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok || c.ReviewID != reviewID {
		return nil, apperror.NotFound("comment", idStr(commentID))
	}
	out := *c
	return &out, nil
}

func (f *fakeStore) ListComments(_ context.Context, reviewID int64, opts repository.ListOptions) ([]model.Comment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Comment
	for _, id := range sortedIDs(f.comments) {
		if c := f.comments[id]; c.ReviewID == reviewID {
			all = append(all, *c)
		}
	}
	return page(all, opts), len(all), nil
}

func (f *fakeStore) UpdateComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[c.ID]; !ok {
		return apperror.NotFound("comment", idStr(c.ID))
	}
	stored := *c
	f.comments[c.ID] = &stored
	return nil
}

func (f *fakeStore) DeleteComment(_ context.Context, reviewID, commentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.comments[commentID]; !ok || c.ReviewID != reviewID {
		return apperror.NotFound("comment", idStr(commentID))
	}
	delete(f.comments, commentID)
	return nil
}

// =========================================================================
// AUTH FAKES
// =========================================================================

// fakeCodes issues "code-N" and stores "hash:code-N", so tests can read the
// plaintext back from the sender.
type fakeCodes struct{ n int }

func (c *fakeCodes) Generate() (string, string, error) {
	c.n++
	code := "code-" + strconv.Itoa(c.n)
	return code, "hash:" + code, nil
}

func (c *fakeCodes) Verify(hash, code string) error {
	if hash == "" || hash != "hash:"+code {
		return auth.ErrInvalidCode
	}
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Generate(userID int64) (string, error) {
	return "token-for-" + idStr(userID), nil
}

type sentCode struct{ email, username, code string }

type fakeSender struct {
	sent []sentCode
	err  error
}

func (s *fakeSender) SendCode(_ context.Context, email, username, code string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentCode{email, username, code})
	return nil
}

func (s *fakeSender) last() sentCode {
	if len(s.sent) == 0 {
		return sentCode{}
	}
	return s.sent[len(s.sent)-1]
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fixedClock pins "now" to 2026-06-15.
func fixedClock() time.Time {
	return time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)
}

func seedUser(t *testing.T, store *fakeStore, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com", Role: role}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return u
}

func ptr[T any](v T) *T { return &v }
