package handler

import (
	"net/http"

	"bookrec/internal/service"
)

type RecommendHandler struct {
	svc *service.RecommendService
}

func NewRecommendHandler(s *service.RecommendService) *RecommendHandler {
	return &RecommendHandler{svc: s}
}

// n is checked by the engine so that every transport reports the same error.
type byUserRequest struct {
	User    string `query:"user" validate:"required,max=256"`
	N       int    `query:"n"`
	Refresh bool   `query:"refresh"`
}

type byItemRequest struct {
	Title   string `query:"title" validate:"required,max=512"`
	N       int    `query:"n"`
	Refresh bool   `query:"refresh"`
}

type historyRequest struct {
	User  string `query:"user" validate:"required_without=Title"`
	Title string `query:"title"`
	Limit int    `query:"limit" validate:"min=0,max=100"`
}

// ByUser serves GET /recommend/by-user?user=<name>&n=<int>&refresh=<bool>.
func (h *RecommendHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", h.svc.DefaultResults())
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := byUserRequest{User: r.URL.Query().Get("user"), N: n, Refresh: boolParam(r, "refresh")}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.svc.ForUser(r.Context(), req.User, req.N, req.Refresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ByItem serves GET /recommend/by-item?title=<title>&n=<int>&refresh=<bool>.
func (h *RecommendHandler) ByItem(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", h.svc.DefaultResults())
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := byItemRequest{Title: r.URL.Query().Get("title"), N: n, Refresh: boolParam(r, "refresh")}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	resp, err := h.svc.SimilarTo(r.Context(), req.Title, req.N, req.Refresh)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// History serves GET /recommend/history?user=<name>|title=<title>&limit=<int>.
func (h *RecommendHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := historyRequest{User: r.URL.Query().Get("user"), Title: r.URL.Query().Get("title"), Limit: limit}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}

	subject := req.User
	if subject == "" {
		subject = req.Title
	}
	docs, err := h.svc.History(r.Context(), subject, req.Limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}
