package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/manokeeper/internal/client/models"
	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/netx"
)

// MaxPageSize is sent as "limit" so that a collection comes back in one page.
const MaxPageSize = 1<<53 - 1

type HTTPClient struct {
	baseURL     string
	accessToken string
	http        *http.Client
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func NewHTTPClient(baseURL, accessToken string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		http:        &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if c.accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.accessToken)
	}
	return req, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return mapStatus(err)
	}
	return mapStatus(netx.ReadResponse(resp, out))
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

func (c *HTTPClient) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.doJSON(ctx, http.MethodGet, "/user/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *HTTPClient) GetOrganisation(ctx context.Context, organisationID string) (*models.Organisation, error) {
	var o models.Organisation
	if err := c.doJSON(ctx, http.MethodGet, "/organisation/"+url.PathEscape(organisationID), nil, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

type lockRequest struct {
	LockedForEncryption bool    `json:"lockedForEncryption"`
	LockedBy            *string `json:"lockedBy"`
}

func (c *HTTPClient) SetEncryptionLock(ctx context.Context, organisationID string, locked bool, lockedBy string) error {
	body := lockRequest{LockedForEncryption: locked}
	if locked {
		body.LockedBy = &lockedBy
	}
	return c.doJSON(ctx, http.MethodPut, "/organisation/"+url.PathEscape(organisationID), nil, body, nil)
}

func (c *HTTPClient) ListCollection(ctx context.Context, col models.Collection, organisationID string) ([]models.Item, error) {
	q := url.Values{}
	q.Set("organisation", organisationID)
	q.Set("limit", strconv.FormatInt(MaxPageSize, 10))
	q.Set("page", "0")
	q.Set("after", "0")
	q.Set("withDeleted", "true")

	var items []models.Item
	if err := c.doJSON(ctx, http.MethodGet, col.Path(), q, nil, &items); err != nil {
		return nil, fmt.Errorf("list %s: %w", col, err)
	}
	return items, nil
}

func (c *HTTPClient) Encrypt(ctx context.Context, r *models.EncryptRequest) (*models.Organisation, error) {
	body := make(map[string]any, len(models.RotationOrder)+1)
	for _, col := range models.RotationOrder {
		items := r.Batches[col]
		if items == nil {
			items = []models.Item{}
		}
		body[col.BatchKey()] = items
	}
	body["encryptedVerificationKey"] = r.EncryptedVerificationKey

	q := url.Values{}
	if r.EncryptionLastUpdateAt != nil {
		q.Set("encryptionLastUpdateAt", r.EncryptionLastUpdateAt.UTC().Format(time.RFC3339Nano))
	}
	q.Set("encryptionEnabled", "true")
	q.Set("changeMasterKey", "true")

	var o models.Organisation
	if err := c.doJSON(ctx, http.MethodPost, "/encrypt", q, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// DownloadDocument fetches a raw blob. path is relative to the base URL.
func (c *HTTPClient) DownloadDocument(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, mapStatus(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mapStatus(netx.ReadResponse(resp, nil))
	}
	defer resp.Body.Close()

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mapStatus(err)
	}
	return blob, nil
}

func (c *HTTPClient) UploadDocument(ctx context.Context, personID string, up models.Upload) (*models.FileInfo, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, up.Name))
	mime := up.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	h.Set("Content-Type", mime)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(up.Blob); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, models.DocumentsPath(personID), nil, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var fi models.FileInfo
	if err := c.do(req, &fi); err != nil {
		return nil, err
	}
	return &fi, nil
}

func (c *HTTPClient) DeleteDocument(ctx context.Context, personID, filename string) error {
	return c.doJSON(ctx, http.MethodDelete, models.DocumentPath(personID, filename), nil, nil, nil)
}

func mapStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	switch netx.StatusOf(err) {
	case 0:
		var ue *url.Error
		if errors.As(err, &ue) {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case http.StatusConflict, http.StatusLocked:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return fmt.Errorf("api error: %w", err)
	}
}
