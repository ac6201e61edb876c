package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/okian/hotitems/internal/domain/model"
	"github.com/okian/hotitems/internal/domain/types"
	"github.com/okian/hotitems/pkg/logger"
)

// ItemsHandler serves item creation, likes and the hot list.
type ItemsHandler struct {
	svc    Service
	logger logger.Logger
}

// NewItemsHandler creates a new items handler.
func NewItemsHandler(svc Service, l logger.Logger) *ItemsHandler {
	return &ItemsHandler{svc: svc, logger: l}
}

type createRequest struct {
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

type createResponse struct {
	Message string     `json:"message"`
	Item    model.Item `json:"item"`
}

type hotResponse struct {
	Items []types.Entry `json:"items"`
}

// HandleCreate handles POST /items.
func (h *ItemsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create"
	var req createRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	item, err := h.svc.Create(r.Context(), req.Content, req.UserID)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{Message: "item created", Item: item})
}

// HandleLike handles POST /items/{id}/like.
func (h *ItemsHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	const op = "api.like"
	item, err := h.svc.Like(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// HandleHot handles GET /items/hot?limit=N. A missing limit selects the
// service default.
func (h *ItemsHandler) HandleHot(w http.ResponseWriter, r *http.Request) {
	const op = "api.hot"
	n := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		n = v
	}

	items, err := h.svc.TopHot(r.Context(), n)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, hotResponse{Items: types.Ranked(items)})
}

func (h *ItemsHandler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", logger.String("op", op), logger.Error(err))
	}
	writeError(w, status, code, err)
}
