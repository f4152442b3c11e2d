package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/nmarques/breaking-news-service/internal/domain"
	"github.com/nmarques/breaking-news-service/internal/service"
)

const (
	defaultFeedLimit = 5
	maxFeedLimit     = 100
)

// NewsHandler exposes the news aggregate over REST.
type NewsHandler struct {
	service  *service.NewsService
	observer *service.CommentObserver
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

func NewNewsHandler(svc *service.NewsService, observer *service.CommentObserver, log *logrus.Logger) *NewsHandler {
	return &NewsHandler{
		service:  svc,
		observer: observer,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Routes mounts the handler under the router group it receives.
func (h *NewsHandler) Routes(r chi.Router) {
	r.Get("/", h.Feed)
	r.Get("/top", h.Top)
	r.Get("/search", h.Search)
	r.Get("/{id}", h.FindByID)
	r.Get("/{id}/comments/stream", h.StreamComments)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser)
		r.Post("/", h.Create)
		r.Get("/byUser", h.ByUser)
		r.Patch("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Patch("/like/{id}", h.ToggleLike)
		r.Patch("/comment/{id}", h.AddComment)
		r.Delete("/comment/{id}/{commentId}", h.DeleteComment)
	})
}

func (h *NewsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title  string `json:"title"`
		Text   string `json:"text"`
		Banner string `json:"banner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body."})
		return
	}

	news, err := h.service.Create(r.Context(), UserID(r.Context()), body.Title, body.Text, body.Banner)
	if err != nil {
		if domain.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Submit all fields for registration."})
			return
		}
		h.writeError(w, err)
		return
	}

	users := resolveAuthors(r.Context(), []*domain.News{news})
	writeJSON(w, http.StatusCreated, map[string]newsView{"news": toNewsView(news, users)})
}

func (h *NewsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	items, total, err := h.service.Feed(r.Context(), offset, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	base := r.URL.Path
	var nextURL, previousURL *string
	if next := offset + limit; next < total {
		u := base + "?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(next)
		nextURL = &u
	}
	if previous := offset - limit; previous >= 0 {
		u := base + "?limit=" + strconv.Itoa(limit) + "&offset=" + strconv.Itoa(previous)
		previousURL = &u
	}

	users := resolveAuthors(r.Context(), items)
	writeJSON(w, http.StatusOK, feedResponse{
		NextURL:     nextURL,
		PreviousURL: previousURL,
		Limit:       limit,
		Offset:      offset,
		Total:       total,
		Results:     toNewsViews(items, users),
	})
}

func (h *NewsHandler) Top(w http.ResponseWriter, r *http.Request) {
	news, err := h.service.Top(r.Context())
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "There is no registered post."})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	users := resolveAuthors(r.Context(), []*domain.News{news})
	writeJSON(w, http.StatusOK, map[string]newsView{"news": toNewsView(news, users)})
}

func (h *NewsHandler) FindByID(w http.ResponseWriter, r *http.Request) {
	news, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	users := resolveAuthors(r.Context(), []*domain.News{news})
	writeJSON(w, http.StatusOK, map[string]newsView{"news": toNewsView(news, users)})
}

func (h *NewsHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.SearchByTitle(r.Context(), r.URL.Query().Get("title"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "There are no posts with this title."})
		return
	}

	users := resolveAuthors(r.Context(), items)
	writeJSON(w, http.StatusOK, map[string][]newsView{"results": toNewsViews(items, users)})
}

func (h *NewsHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ByAuthor(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	users := resolveAuthors(r.Context(), items)
	writeJSON(w, http.StatusOK, map[string][]newsView{"results": toNewsViews(items, users)})
}

func (h *NewsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title  string `json:"title"`
		Text   string `json:"text"`
		Banner string `json:"banner"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body."})
		return
	}

	upd := domain.NewsUpdate{}
	if body.Title != "" {
		upd.Title = &body.Title
	}
	if body.Text != "" {
		upd.Text = &body.Text
	}
	if body.Banner != "" {
		upd.Banner = &body.Banner
	}

	err := h.service.Update(r.Context(), chi.URLParam(r, "id"), UserID(r.Context()), upd)
	if err != nil {
		if domain.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Submit at least one field to update the post."})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Post successfully updated."})
}

func (h *NewsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Post deleted successfully."})
}

func (h *NewsHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	message := "Like done successfully."
	if result == service.LikeRemoved {
		message = "Like successfully removed."
	}
	writeJSON(w, http.StatusOK, struct {
		Applied service.LikeResult `json:"applied"`
		Message string             `json:"message"`
	}{Applied: result, Message: message})
}

func (h *NewsHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body."})
		return
	}

	comment, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), UserID(r.Context()), body.Comment)
	if err != nil {
		if domain.IsValidation(err) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Write a message to comment."})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]*domain.Comment{"comment": comment})
}

func (h *NewsHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteComment(r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "commentId"),
		UserID(r.Context()),
	)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Comment successfully removed."})
}

// writeError maps domain errors onto HTTP statuses. Store failures are the
// only ones logged here; everything else is the client's mistake.
func (h *NewsHandler) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: ve.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, messageResponse{Message: "Post not found."})
	case errors.Is(err, domain.ErrNotOwner):
		writeJSON(w, http.StatusForbidden, messageResponse{Message: "You don't own this resource."})
	default:
		h.log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Internal server error."})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultFeedLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
