package handler

import (
	"net/http"
)

type listRequest struct {
	Query string `query:"q" validate:"max=200"`
	Limit int    `query:"limit" validate:"min=0,max=1000"`
}

type searchRequest struct {
	Query string `query:"q" validate:"required,max=200"`
	Limit int    `query:"limit" validate:"min=0,max=1000"`
}

// Users serves GET /users?q=&limit=.
func (h *RecommendHandler) Users(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := listRequest{Query: r.URL.Query().Get("q"), Limit: limit}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Users(req.Query, req.Limit))
}

// SearchItems serves GET /items/search?q=&limit=.
func (h *RecommendHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req := searchRequest{Query: r.URL.Query().Get("q"), Limit: limit}
	if err := validateRequest(req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.svc.SearchItems(req.Query, req.Limit))
}

// Stats serves GET /stats.
func (h *RecommendHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
