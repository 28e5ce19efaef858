package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
)

// captureSender keeps the last confirmation code sent to each username.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *captureSender) SendCode(_ context.Context, _, username, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[username] = code
	return nil
}

func (c *captureSender) code(username string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.codes[username]
}

type testAPI struct {
	t      *testing.T
	srv    *httptest.Server
	db     *sqliteRepo.DB
	sender *captureSender
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sender := &captureSender{codes: map[string]string{}}
	s, err := New(Config{
		JWTSecret: "test-secret-0123456789",
		TokenTTL:  time.Hour,
		CodeCost:  bcrypt.MinCost,
		Sender:    sender,
		Now:       func() time.Time { return time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC) },
	}, db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testAPI{t: t, srv: srv, db: db, sender: sender}
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (a *testAPI) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	resp, err := a.send(method, path, token, body)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// send issues the request without touching t.
func (a *testAPI) send(method, path, token string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.srv.Client().Do(req)
}

// login signs up username and exchanges the code for a token.
func (a *testAPI) login(username string) string {
	a.t.Helper()
	status := a.do(http.MethodPost, "/api/v1/auth/signup/", "",
		map[string]string{"username": username, "email": username + "@example.com"}, nil)
	require.Equal(a.t, http.StatusOK, status)

	var tok struct{ Token string }
	status = a.do(http.MethodPost, "/api/v1/auth/token/", "",
		map[string]string{"username": username, "confirmation_code": a.sender.code(username)}, &tok)
	require.Equal(a.t, http.StatusOK, status)
	require.NotEmpty(a.t, tok.Token)
	return tok.Token
}

func (a *testAPI) promote(username string, role model.Role) {
	a.t.Helper()
	ctx := context.Background()
	u, err := a.db.GetUserByUsername(ctx, username)
	require.NoError(a.t, err)
	u.Role = role
	require.NoError(a.t, a.db.UpdateUser(ctx, u))
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field"`
}

type titleBody struct {
	ID       int64 `json:"id"`
	Name     string
	Year     int
	Rating   *int
	Genre    []struct{ Name, Slug string }
	Category *struct{ Name, Slug string }
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/healthz", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAuthFlow(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("critic")

	var me map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/users/me/", token, nil, &me))
	assert.Equal(t, "critic", me["username"])
	assert.Equal(t, "user", me["role"])
	assert.NotContains(t, me, "confirmation_code")

	var e errorBody
	status := api.do(http.MethodPost, "/api/v1/auth/token/", "",
		map[string]string{"username": "critic", "confirmation_code": "nope"}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "confirmation_code", e.Field)

	status = api.do(http.MethodPost, "/api/v1/auth/token/", "",
		map[string]string{"username": "ghost", "confirmation_code": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status = api.do(http.MethodPost, "/api/v1/auth/signup/", "",
		map[string]string{"username": "me", "email": "me@example.com"}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "username", e.Field)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/users/me/", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/users/me/", "garbage", nil, nil))
}

func TestToken_ImportedUserWithRawCode(t *testing.T) {
	api := newTestAPI(t)
	ctx := context.Background()

	err := api.db.Seed(ctx, func(ins repository.RowInserter) error {
		_, err := ins.InsertRows(ctx, "users",
			[]string{"id", "username", "email", "confirmation_code", "date_joined"},
			[][]any{{int64(100), "imported", "imported@example.com", "plain-code", time.Now().UTC()}})
		return err
	})
	require.NoError(t, err)

	var e errorBody
	status := api.do(http.MethodPost, "/api/v1/auth/token/", "",
		map[string]string{"username": "imported", "confirmation_code": "plain-code"}, &e)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "confirmation_code", e.Field)

	// Signing up again replaces the raw value with a usable code.
	assert.NotEmpty(t, api.login("imported"))
}

func TestUsersMe_CannotChangeRole(t *testing.T) {
	api := newTestAPI(t)
	token := api.login("climber")

	var me map[string]any
	status := api.do(http.MethodPatch, "/api/v1/users/me/", token,
		map[string]string{"role": "admin", "bio": "trust me"}, &me)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user", me["role"])
	assert.Equal(t, "trust me", me["bio"])
}

func TestUsersMe_UnsupportedMethods(t *testing.T) {
	api := newTestAPI(t)
	userToken := api.login("someone")
	adminToken := api.login("chief")
	api.promote("chief", model.RoleAdmin)

	for _, method := range []string{http.MethodDelete, http.MethodPut, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			var e errorBody
			assert.Equal(t, http.StatusMethodNotAllowed, api.do(method, "/api/v1/users/me/", userToken, nil, &e))
			assert.Equal(t, "method_not_allowed", e.Error)
			assert.Equal(t, http.StatusMethodNotAllowed, api.do(method, "/api/v1/users/me/", adminToken, nil, nil))
			assert.Equal(t, http.StatusUnauthorized, api.do(method, "/api/v1/users/me/", "", nil, nil))
		})
	}

	// The account is still there.
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/users/me/", userToken, nil, nil))
}

func TestUsers_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	userToken := api.login("plain")
	adminToken := api.login("boss")
	api.promote("boss", model.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodGet, "/api/v1/users/", "", nil, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodGet, "/api/v1/users/", userToken, nil, nil))

	var page struct {
		Count   int
		Results []map[string]any
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/users/?search=pla", adminToken, nil, &page))
	assert.Equal(t, 1, page.Count)

	status := api.do(http.MethodPost, "/api/v1/users/", adminToken,
		map[string]string{"username": "mod", "email": "mod@example.com", "role": "moderator"}, nil)
	assert.Equal(t, http.StatusCreated, status)

	var u map[string]any
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/api/v1/users/plain/", adminToken,
		map[string]string{"role": "moderator"}, &u))
	assert.Equal(t, "moderator", u["role"])

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/v1/users/mod/", adminToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/users/mod/", adminToken, nil, nil))
}

// seedCatalog creates a category, two genres and one title as an admin and
// returns the admin token and the title id.
func seedCatalog(t *testing.T, api *testAPI) (string, int64) {
	t.Helper()
	admin := api.login("admin")
	api.promote("admin", model.RoleAdmin)

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/categories/", admin,
		map[string]string{"name": "Films", "slug": "films"}, nil))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/genres/", admin,
		map[string]string{"name": "Drama", "slug": "drama"}, nil))
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/genres/", admin,
		map[string]string{"name": "Sci-Fi", "slug": "sci-fi"}, nil))

	var title titleBody
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/titles/", admin, map[string]any{
		"name": "Solaris", "year": 1972, "genre": []string{"drama", "sci-fi"}, "category": "films",
	}, &title))
	return admin, title.ID
}

func TestCatalog(t *testing.T) {
	api := newTestAPI(t)
	admin, titleID := seedCatalog(t, api)
	user := api.login("viewer")

	// Anyone reads; only admins write.
	var cats struct{ Count int }
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/categories/", "", nil, &cats))
	assert.Equal(t, 1, cats.Count)
	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, "/api/v1/genres/", "",
		map[string]string{"name": "X", "slug": "x"}, nil))
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPost, "/api/v1/genres/", user,
		map[string]string{"name": "X", "slug": "x"}, nil))

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/categories/", admin,
		map[string]string{"name": "Dup", "slug": "films"}, &e))
	assert.Equal(t, "slug", e.Field)

	var title titleBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/titles/"+strconv.FormatInt(titleID, 10)+"/", "", nil, &title))
	assert.Equal(t, "Solaris", title.Name)
	assert.Nil(t, title.Rating)
	require.NotNil(t, title.Category)
	assert.Equal(t, "films", title.Category.Slug)
	assert.Len(t, title.Genre, 2)

	var page struct {
		Count   int
		Results []titleBody
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/titles/?genre=sci-fi&year=1972", "", nil, &page))
	assert.Equal(t, 1, page.Count)
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/titles/?category=books", "", nil, &page))
	assert.Equal(t, 0, page.Count)
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/titles/?year=old", "", nil, nil))

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/titles/", admin, map[string]any{
		"name": "Future", "year": 2027, "category": "films",
	}, &e))
	assert.Equal(t, "year", e.Field)

	// Deleting the category leaves the title without one.
	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/v1/categories/films/", admin, nil, nil))
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/titles/"+strconv.FormatInt(titleID, 10)+"/", "", nil, &title))
	assert.Nil(t, title.Category)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/titles/abc/", "", nil, nil))
}

func TestReviewsAndComments(t *testing.T) {
	api := newTestAPI(t)
	_, titleID := seedCatalog(t, api)
	alice := api.login("alice")
	bob := api.login("bob")
	mod := api.login("moddy")
	api.promote("moddy", model.RoleModerator)

	base := "/api/v1/titles/" + strconv.FormatInt(titleID, 10) + "/reviews/"

	assert.Equal(t, http.StatusUnauthorized, api.do(http.MethodPost, base, "",
		map[string]any{"text": "anon", "score": 5}, nil))

	var review struct {
		ID     int64
		Author string
		Score  int
	}
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, base, alice,
		map[string]any{"text": "great", "score": 10}, &review))
	assert.Equal(t, "alice", review.Author)

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, base, alice,
		map[string]any{"text": "again", "score": 9}, &e))
	assert.Equal(t, "You can leave a review to the title only once!", e.Message)

	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, base, bob,
		map[string]any{"text": "bad", "score": 11}, &e))
	assert.Equal(t, "score", e.Field)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, base, bob,
		map[string]any{"text": "meh", "score": 5}, nil))

	var title titleBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/titles/"+strconv.FormatInt(titleID, 10)+"/", "", nil, &title))
	require.NotNil(t, title.Rating)
	assert.Equal(t, 7, *title.Rating)

	reviewURL := base + strconv.FormatInt(review.ID, 10) + "/"
	assert.Equal(t, http.StatusForbidden, api.do(http.MethodPatch, reviewURL, bob, map[string]any{"score": 1}, nil))
	assert.Equal(t, http.StatusOK, api.do(http.MethodPatch, reviewURL, mod, map[string]any{"text": "moderated"}, nil))

	comments := reviewURL + "comments/"
	var comment struct{ ID int64 }
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, comments, bob, map[string]any{"text": "disagree"}, &comment))
	commentURL := comments + strconv.FormatInt(comment.ID, 10) + "/"

	assert.Equal(t, http.StatusForbidden, api.do(http.MethodDelete, commentURL, alice, nil, nil))
	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, commentURL, "", nil, nil))

	// A review reached through the wrong title does not exist.
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/titles/999/reviews/"+strconv.FormatInt(review.ID, 10)+"/", "", nil, nil))

	// Deleting the review takes its comments with it.
	require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, reviewURL, alice, nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, commentURL, "", nil, nil))
}

func TestConcurrentReviewsFromOneUser(t *testing.T) {
	api := newTestAPI(t)
	_, titleID := seedCatalog(t, api)
	token := api.login("racer")
	base := "/api/v1/titles/" + strconv.FormatInt(titleID, 10) + "/reviews/"

	statuses := make([]int, 4)
	errs := make([]error, len(statuses))
	var wg sync.WaitGroup
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := api.send(http.MethodPost, base, token, map[string]any{"text": "race", "score": 6})
			if err != nil {
				errs[i] = err
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	created := 0
	for _, s := range statuses {
		if s == http.StatusCreated {
			created++
		} else {
			assert.Contains(t, []int{http.StatusBadRequest, http.StatusConflict}, s)
		}
	}
	assert.Equal(t, 1, created)
}
