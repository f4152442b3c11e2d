package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarques/breaking-news-service/internal/domain"
	"github.com/nmarques/breaking-news-service/internal/service"
	"github.com/nmarques/breaking-news-service/internal/storage"
	"github.com/nmarques/breaking-news-service/internal/storage/inmemory"
)

func newTestAPI(t *testing.T) (*chi.Mux, storage.Storage, *service.NewsService) {
	store := inmemory.New()
	ctx := context.Background()

	_, err := store.CreateUser(ctx, &domain.User{
		ID: "user-1", Name: "Alice Martins", Username: "alice", AvatarURL: "https://example.com/alice.png",
	})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, &domain.User{ID: "user-2", Name: "Bob Ferreira", Username: "bob"})
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	observer := service.NewCommentObserver()
	svc := service.NewNewsService(store, observer)
	return NewRouter(log, store, svc, observer), store, svc
}

func doRequest(t *testing.T, router http.Handler, method, target, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != "" {
		req.Header.Set(UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func createPost(t *testing.T, svc *service.NewsService, authorID, title string) *domain.News {
	t.Helper()
	news, err := svc.Create(context.Background(), authorID, title, "some text", "banner.png")
	require.NoError(t, err)
	return news
}

func TestCreateNews(t *testing.T) {
	router, _, _ := newTestAPI(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/news", `{"title":"A","text":"B","banner":"C"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/news", `{"title":"A","text":"B"}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var msg messageResponse
	decode(t, rec, &msg)
	assert.Equal(t, "Submit all fields for registration.", msg.Message)

	rec = doRequest(t, router, http.MethodPost, "/api/v1/news", `{"title":"A","text":"B","banner":"C"}`, "user-1")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		News newsView `json:"news"`
	}
	decode(t, rec, &body)
	assert.NotEmpty(t, body.News.ID)
	assert.Equal(t, "A", body.News.Title)
	require.NotNil(t, body.News.User)
	assert.Equal(t, "Alice Martins", body.News.User.Name)
	assert.Equal(t, "alice", body.News.User.Username)
}

func TestFeed(t *testing.T) {
	router, _, svc := newTestAPI(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/news", "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code, "an empty feed is no-content, not an error")

	for i := 0; i < 7; i++ {
		createPost(t, svc, "user-1", fmt.Sprintf("post %d", i))
	}

	rec = doRequest(t, router, http.MethodGet, "/api/v1/news", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var feed feedResponse
	decode(t, rec, &feed)
	assert.Equal(t, 5, feed.Limit)
	assert.Equal(t, 0, feed.Offset)
	assert.Equal(t, 7, feed.Total)
	require.Len(t, feed.Results, 5)
	assert.Equal(t, "post 6", feed.Results[0].Title, "feed is newest first")
	require.NotNil(t, feed.Results[0].User)
	assert.Equal(t, "alice", feed.Results[0].User.Username)
	require.NotNil(t, feed.NextURL)
	assert.Equal(t, "/api/v1/news?limit=5&offset=5", *feed.NextURL)
	assert.Nil(t, feed.PreviousURL)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/news?limit=5&offset=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &feed)
	assert.Len(t, feed.Results, 2)
	assert.Nil(t, feed.NextURL)
	require.NotNil(t, feed.PreviousURL)
	assert.Equal(t, "/api/v1/news?limit=5&offset=0", *feed.PreviousURL)
}

func TestTopNews(t *testing.T) {
	router, _, svc := newTestAPI(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/news/top", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	createPost(t, svc, "user-1", "older")
	createPost(t, svc, "user-1", "latest")

	rec = doRequest(t, router, http.MethodGet, "/api/v1/news/top", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		News newsView `json:"news"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "latest", body.News.Title)
}

func TestFindByID(t *testing.T) {
	router, _, svc := newTestAPI(t)
	news := createPost(t, svc, "user-1", "findable")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/news/"+news.ID, "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		News newsView `json:"news"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "findable", body.News.Title)
	assert.NotNil(t, body.News.Likes)
	assert.NotNil(t, body.News.Comments)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/news/missing-id", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchByTitle(t *testing.T) {
	router, _, svc := newTestAPI(t)
	createPost(t, svc, "user-1", "Breaking: Go released")
	createPost(t, svc, "user-1", "Unrelated story")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/news/search?title=go+released", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []newsView `json:"results"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Breaking: Go released", body.Results[0].Title)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/news/search?title=nothing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestByUser(t *testing.T) {
	router, _, svc := newTestAPI(t)
	createPost(t, svc, "user-1", "mine")
	createPost(t, svc, "user-2", "theirs")

	rec := doRequest(t, router, http.MethodGet, "/api/v1/news/byUser", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Results []newsView `json:"results"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "mine", body.Results[0].Title)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/news/byUser", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUpdateNews(t *testing.T) {
	router, _, svc := newTestAPI(t)
	news := createPost(t, svc, "user-1", "original")

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/news/"+news.ID, `{"title":"hacked"}`, "user-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	unchanged, err := svc.Get(context.Background(), news.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", unchanged.Title)

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/news/"+news.ID, `{}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/news/missing-id", `{"title":"x"}`, "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/news/"+news.ID, `{"title":"updated"}`, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := svc.Get(context.Background(), news.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Title)
	assert.Equal(t, "some text", updated.Text)
}

func TestDeleteNews(t *testing.T) {
	router, _, svc := newTestAPI(t)
	news := createPost(t, svc, "user-1", "doomed")

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/news/"+news.ID, "", "user-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/news/"+news.ID, "", "user-1")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/news/"+news.ID, "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleLike(t *testing.T) {
	router, _, svc := newTestAPI(t)
	news := createPost(t, svc, "user-1", "likeable")

	var body struct {
		Applied string `json:"applied"`
	}

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/news/like/"+news.ID, "", "user-2")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, "added", body.Applied)

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/news/like/"+news.ID, "", "user-2")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, "removed", body.Applied)

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/news/like/missing-id", "", "user-2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComments(t *testing.T) {
	router, _, svc := newTestAPI(t)
	news := createPost(t, svc, "user-1", "commented")

	rec := doRequest(t, router, http.MethodPatch, "/api/v1/news/comment/"+news.ID, `{"comment":"  "}`, "user-2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPatch, "/api/v1/news/comment/"+news.ID, `{"comment":"hello"}`, "user-2")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Comment domain.Comment `json:"comment"`
	}
	decode(t, rec, &body)
	assert.NotEmpty(t, body.Comment.ID)
	assert.Equal(t, "user-2", body.Comment.UserID)

	// Only the comment's author may delete it, not the post owner.
	rec = doRequest(t, router, http.MethodDelete, "/api/v1/news/comment/"+news.ID+"/"+body.Comment.ID, "", "user-1")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/news/comment/"+news.ID+"/"+body.Comment.ID, "", "user-2")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/v1/news/comment/"+news.ID+"/"+body.Comment.ID, "", "user-2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamComments(t *testing.T) {
	router, _, svc := newTestAPI(t)
	news := createPost(t, svc, "user-1", "streamed")

	server := httptest.NewServer(router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/news/" + news.ID + "/comments/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	// Give the handler a moment to register the subscription.
	time.Sleep(100 * time.Millisecond)

	req, err := http.NewRequest(http.MethodPatch, server.URL+"/api/v1/news/comment/"+news.ID, strings.NewReader(`{"comment":"live"}`))
	require.NoError(t, err)
	req.Header.Set(UserIDHeader, "user-2")
	postResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer postResp.Body.Close()
	require.Equal(t, http.StatusCreated, postResp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var comment domain.Comment
	require.NoError(t, conn.ReadJSON(&comment))
	assert.Equal(t, "live", comment.Text)
	assert.Equal(t, "user-2", comment.UserID)
}

func TestStreamCommentsMissingPost(t *testing.T) {
	router, _, _ := newTestAPI(t)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/news/missing-id/comments/stream", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
