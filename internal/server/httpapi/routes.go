package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/manokeeper/internal/server/models"
)

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireToken(h))
	}

	authed("GET /user/me", s.handleMe)
	authed("GET /organisation/{id}", s.handleGetOrganisation)
	authed("PUT /organisation/{id}", s.handleSetLock)
	authed("POST /encrypt", s.handleEncrypt)

	for _, c := range models.Collections() {
		authed("GET /"+string(c), s.handleList(c))
	}

	authed("POST /person/{person}/document", s.handleUpload)
	authed("GET /person/{person}/document/{filename}", s.handleDownload)
	authed("DELETE /person/{person}/document/{filename}", s.handleDeleteDocument)

	return mux
}
