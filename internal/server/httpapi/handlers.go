package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/netx"
	"github.com/dmitrijs2005/manokeeper/internal/server/models"
	"github.com/dmitrijs2005/manokeeper/internal/server/services"
)

const maxJSONBody = 256 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	netx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	u, err := s.svc.Users.Me(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	netx.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) handleGetOrganisation(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	org, err := s.svc.Organisations.Get(r.Context(), id, r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	netx.WriteJSON(w, http.StatusOK, org)
}

type lockRequest struct {
	LockedForEncryption *bool   `json:"lockedForEncryption"`
	LockedBy            *string `json:"lockedBy"`
}

func (s *Server) handleSetLock(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req lockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if req.LockedForEncryption == nil {
		s.writeServiceError(w, r, fmt.Errorf("%w: lockedForEncryption is required", common.ErrValidation))
		return
	}

	org, err := s.svc.Organisations.SetLock(r.Context(), id, r.PathValue("id"), *req.LockedForEncryption, req.LockedBy)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	netx.WriteJSON(w, http.StatusOK, org)
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	batch, err := parseEncryptBatch(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	org, err := s.svc.Organisations.Encrypt(r.Context(), id, batch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	netx.WriteJSON(w, http.StatusOK, org)
}

func parseEncryptBatch(w http.ResponseWriter, r *http.Request) (*models.EncryptBatch, error) {
	q := r.URL.Query()
	if v := q.Get("encryptionEnabled"); v != "" && v != "true" {
		return nil, fmt.Errorf("%w: encryptionEnabled must be true", common.ErrValidation)
	}

	batch := &models.EncryptBatch{Records: make(map[models.Collection][]models.Record)}
	if v := q.Get("encryptionLastUpdateAt"); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("%w: encryptionLastUpdateAt: %w", common.ErrValidation, err)
		}
		batch.Watermark = &t
	}

	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}

	if raw, ok := body["encryptedVerificationKey"]; ok {
		if err := json.Unmarshal(raw, &batch.EncryptedVerificationKey); err != nil {
			return nil, fmt.Errorf("%w: encryptedVerificationKey: %w", common.ErrValidation, err)
		}
	}
	for _, c := range models.Collections() {
		raw, ok := body[c.BatchKey()]
		if !ok {
			continue
		}
		var recs []models.Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", common.ErrValidation, c.BatchKey(), err)
		}
		batch.Records[c] = recs
	}
	return batch, nil
}

func (s *Server) handleList(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := identityFrom(r.Context())

		q := r.URL.Query()
		organisationID := q.Get("organisation")
		if organisationID == "" {
			organisationID = id.OrganisationID
		}

		opts, err := parseListOptions(q.Get)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}

		recs, err := s.svc.Records.List(r.Context(), id, organisationID, c, opts)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		netx.WriteJSON(w, http.StatusOK, recs)
	}
}

func parseListOptions(get func(string) string) (models.ListOptions, error) {
	var opts models.ListOptions
	ints := []struct {
		name string
		dst  *int64
	}{
		{"limit", &opts.Limit},
		{"page", &opts.Page},
		{"after", &opts.After},
	}
	for _, p := range ints {
		v := get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return opts, fmt.Errorf("%w: %s: %w", common.ErrValidation, p.name, err)
		}
		*p.dst = n
	}
	if v := get("withDeleted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: withDeleted: %w", common.ErrValidation, err)
		}
		opts.WithDeleted = b
	}
	return opts, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			netx.WriteError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.writeServiceError(w, r, fmt.Errorf("%w: file: %w", common.ErrValidation, err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	info, err := s.svc.Documents.Upload(r.Context(), id, services.NewDocument{
		PersonID:     r.PathValue("person"),
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Content:      content,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	netx.WriteJSON(w, http.StatusOK, info)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	doc, data, err := s.svc.Documents.Download(r.Context(), id, r.PathValue("person"), r.PathValue("filename"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	if err := s.svc.Documents.Delete(r.Context(), id, r.PathValue("person"), r.PathValue("filename")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	netx.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: body: %w", common.ErrValidation, err)
	}
	return nil
}
