package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mblog/internal/middleware"
	"github.com/xxxsen/mblog/internal/pkg/errcode"
	"github.com/xxxsen/mblog/internal/pkg/markdown"
	"github.com/xxxsen/mblog/internal/pkg/timeutil"
	"github.com/xxxsen/mblog/internal/repo"
	"github.com/xxxsen/mblog/internal/service"
	"github.com/xxxsen/mblog/internal/session"
	"github.com/xxxsen/mblog/internal/view"
)

type testApp struct {
	dir     string
	engine  *gin.Engine
	cookies map[string]*http.Cookie
	users   *repo.UserRepo
	posts   *service.PostService
}

func newTestApp(t *testing.T, rateWindow time.Duration) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	stores, err := repo.Open(filepath.Join(dir, "users.json"), filepath.Join(dir, "blogs.json"))
	require.NoError(t, err)
	users := repo.NewUserRepo(stores.Users)
	dates, err := timeutil.NewDateFormatter("en-US", time.UTC)
	require.NoError(t, err)
	postSvc := service.NewPostService(repo.NewPostRepo(stores.Posts, nil), dates)
	sessions := session.NewManager(session.Config{Secret: []byte("test-secret")})
	pages, err := view.New()
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	RegisterRoutes(&engine.RouterGroup, RouterDeps{
		Home:           NewHomeHandler(pages),
		Auth:           NewAuthHandler(service.NewAuthService(users), sessions, pages),
		Posts:          NewPostHandler(postSvc, markdown.New(), pages),
		Identity:       sessions,
		AuthRateWindow: rateWindow,
	})
	return &testApp{dir: dir, engine: engine, cookies: map[string]*http.Cookie{}, users: users, posts: postSvc}
}

func (a *testApp) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range a.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(a.cookies, ck.Name)
			continue
		}
		a.cookies[ck.Name] = ck
	}
	return w
}

func (a *testApp) register(t *testing.T, email, password string) {
	t.Helper()
	w := a.do(http.MethodPost, "/register", url.Values{
		"email":           {email},
		"password":        {password},
		"confirmPassword": {password},
	})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
}

var errorLine = regexp.MustCompile(`<p class="error" role="alert">([^<]*)</p>`)

func pageError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	m := errorLine.FindStringSubmatch(w.Body.String())
	require.Len(t, m, 2, w.Body.String())
	return m[1]
}

func TestScenarioRegisterLoginPostLogout(t *testing.T) {
	app := newTestApp(t, 0)

	w := app.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))

	app.register(t, "writer@example.com", "pw-1")
	w = app.do(http.MethodGet, "/logout", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
	require.Empty(t, app.cookies)

	w = app.do(http.MethodPost, "/login", url.Values{"email": {"writer@example.com"}, "password": {"pw-1"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Welcome, writer@example.com!")

	w = app.do(http.MethodGet, "/posts/new", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodPost, "/posts", url.Values{"title": {"First"}, "content": {"Hello **world**"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/posts", w.Header().Get("Location"))

	posts, err := app.posts.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "writer@example.com", posts[0].Author)

	w = app.do(http.MethodGet, "/posts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "First")
	require.Contains(t, w.Body.String(), "by writer@example.com")

	w = app.do(http.MethodGet, "/posts/"+posts[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "<strong>world</strong>")

	w = app.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), posts[0].ID)

	w = app.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusFound, w.Code)

	w = app.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))

	w = app.do(http.MethodPost, "/posts", url.Values{"title": {"Second"}, "content": {"x"}})
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/login", w.Header().Get("Location"))
	posts, err = app.posts.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
}

func TestLoginFailuresShareOneMessage(t *testing.T) {
	app := newTestApp(t, 0)
	app.register(t, "a@x.io", "right")
	app.do(http.MethodGet, "/logout", nil)

	unknown := app.do(http.MethodPost, "/login", url.Values{"email": {"nobody@x.io"}, "password": {"right"}})
	wrong := app.do(http.MethodPost, "/login", url.Values{"email": {"a@x.io"}, "password": {"wrong"}})

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, unknown.Code, wrong.Code)
	require.Equal(t, msgInvalidCredentials, pageError(t, unknown))
	require.Equal(t, pageError(t, unknown), pageError(t, wrong))
	require.Empty(t, app.cookies)
}

func TestRegisterRejectsDuplicateAndMismatch(t *testing.T) {
	app := newTestApp(t, 0)
	app.register(t, "a@x.io", "pw")
	app.do(http.MethodGet, "/logout", nil)

	w := app.do(http.MethodPost, "/register", url.Values{
		"email": {"a@x.io"}, "password": {"other"}, "confirmPassword": {"other"},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, msgEmailTaken, pageError(t, w))

	w = app.do(http.MethodPost, "/register", url.Values{
		"email": {"b@x.io"}, "password": {"one"}, "confirmPassword": {"two"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Passwords do not match", pageError(t, w))
	require.Contains(t, w.Body.String(), `value="b@x.io"`)

	users, err := app.users.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	app := newTestApp(t, 0)
	long := strings.Repeat("p", 80)
	w := app.do(http.MethodPost, "/register", url.Values{
		"email": {"long@x.io"}, "password": {long}, "confirmPassword": {long},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Password must be at most 72 bytes", pageError(t, w))
	require.Empty(t, app.cookies)

	users, err := app.users.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestCorruptPostsFileRendersInternalError(t *testing.T) {
	app := newTestApp(t, 0)
	require.NoError(t, os.WriteFile(filepath.Join(app.dir, "blogs.json"), []byte(`{"not":"array"}`), 0o644))

	for _, path := range []string{"/posts", "/posts/1"} {
		w := app.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusInternalServerError, w.Code, path)
		require.Contains(t, w.Body.String(), msgInternal, path)
		require.NotContains(t, w.Body.String(), "not a json array", path)
	}

	w := app.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	codeValue, _ := envelope["code"].(float64)
	require.Equal(t, float64(errcode.ErrInternal), codeValue)
}

func TestCreatePostRerendersInvalidInput(t *testing.T) {
	app := newTestApp(t, 0)
	app.register(t, "a@x.io", "pw")

	w := app.do(http.MethodPost, "/posts", url.Values{"title": {"   "}, "content": {"body"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Title is required", pageError(t, w))
	require.Contains(t, w.Body.String(), ">body</textarea>")

	w = app.do(http.MethodPost, "/posts", url.Values{"title": {"t"}, "content": {"\n\t"}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Content is required", pageError(t, w))

	posts, err := app.posts.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, posts)
}

func TestUnknownPostIsNotFound(t *testing.T) {
	app := newTestApp(t, 0)
	w := app.do(http.MethodGet, "/posts/12345", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), msgPostNotFound)

	w = app.do(http.MethodGet, "/api/posts/12345", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthenticatedFormsRedirectToDashboard(t *testing.T) {
	app := newTestApp(t, 0)
	app.register(t, "a@x.io", "pw")
	for _, path := range []string{"/login", "/register"} {
		w := app.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusFound, w.Code, path)
		require.Equal(t, "/dashboard", w.Header().Get("Location"))
	}
	w := app.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Signed in as a@x.io.")
}

func TestLoginIsThrottled(t *testing.T) {
	app := newTestApp(t, time.Hour)
	form := url.Values{"email": {"a@x.io"}, "password": {"pw"}}
	w := app.do(http.MethodPost, "/login", form)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.do(http.MethodPost, "/login", form)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Contains(t, w.Body.String(), msgTooMany)
}

func TestLogoutWithForgedCookieStillRedirects(t *testing.T) {
	app := newTestApp(t, 0)
	app.cookies[session.DefaultCookieName] = &http.Cookie{Name: session.DefaultCookieName, Value: "forged"}
	w := app.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))
	require.Empty(t, app.cookies)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t, 0)
	w := app.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}
