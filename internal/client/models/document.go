package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"
)

const (
	DocumentTypeDocument = "document"
	DocumentTypeFolder   = "folder"
)

// FileInfo is the server's description of a stored blob.
type FileInfo struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

// DocumentRef is one entry of a record's "documents" list: either a folder
// (organisation only) or a reference to an encrypted file blob.
//
// A DocumentRef read from JSON remembers its original bytes and marshals
// back to them verbatim. Use Rebind to point it at a new blob.
type DocumentRef struct {
	ID                 string     `json:"_id"`
	Name               string     `json:"name"`
	Type               string     `json:"type,omitempty"`
	EncryptedEntityKey string     `json:"encryptedEntityKey,omitempty"`
	DownloadPath       string     `json:"downloadPath,omitempty"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	CreatedBy          string     `json:"createdBy,omitempty"`
	ParentID           string     `json:"parentId,omitempty"`
	Position           *int       `json:"position,omitempty"`
	File               *FileInfo  `json:"file,omitempty"`

	raw json.RawMessage
}

// documentFields is DocumentRef without its JSON methods.
type documentFields DocumentRef

// UnmarshalJSON never fails. Fields with an unexpected type are left zero
// and a value that is not an object yields an empty reference.
func (d *DocumentRef) UnmarshalJSON(b []byte) error {
	*d = DocumentRef{raw: append(json.RawMessage(nil), b...)}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil || fields == nil {
		return nil
	}
	lenient(fields, "_id", &d.ID)
	lenient(fields, "name", &d.Name)
	lenient(fields, "type", &d.Type)
	lenient(fields, "encryptedEntityKey", &d.EncryptedEntityKey)
	lenient(fields, "downloadPath", &d.DownloadPath)
	lenient(fields, "createdBy", &d.CreatedBy)
	lenient(fields, "parentId", &d.ParentID)
	lenient(fields, "position", &d.Position)
	lenient(fields, "file", &d.File)
	d.CreatedAt = parseTimestamp(fields["createdAt"])
	return nil
}

func lenient[T any](fields map[string]json.RawMessage, key string, dst *T) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	var v T
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
	}
}

// parseTimestamp accepts RFC 3339 strings and Unix milliseconds.
func parseTimestamp(raw json.RawMessage) *time.Time {
	if len(raw) == 0 {
		return nil
	}
	var t time.Time
	if json.Unmarshal(raw, &t) == nil {
		return &t
	}
	var ms int64
	if json.Unmarshal(raw, &ms) == nil {
		t = time.UnixMilli(ms).UTC()
		return &t
	}
	return nil
}

func (d DocumentRef) MarshalJSON() ([]byte, error) {
	if d.raw != nil {
		return d.raw, nil
	}
	return marshal(documentFields(d))
}

// Raw returns the bytes d was read from, or nil for a reference built in code.
func (d DocumentRef) Raw() json.RawMessage {
	return d.raw
}

// Rebind returns a copy of d pointing at a new blob. Only _id,
// encryptedEntityKey, downloadPath and file change; every other field read
// from the wire is kept as it was.
func (d DocumentRef) Rebind(encryptedEntityKey, downloadPath string, file *FileInfo) (DocumentRef, error) {
	if file == nil || file.Filename == "" {
		return d, errors.New("rebind: no file")
	}
	out := d
	out.ID = file.Filename
	out.EncryptedEntityKey = encryptedEntityKey
	out.DownloadPath = downloadPath
	out.File = file
	out.raw = nil
	if d.raw == nil {
		return out, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d.raw, &fields); err != nil || fields == nil {
		return d, errors.New("rebind: document is not an object")
	}
	set := map[string]any{
		"_id":                out.ID,
		"encryptedEntityKey": out.EncryptedEntityKey,
		"downloadPath":       out.DownloadPath,
		"file":               out.File,
	}
	for k, v := range set {
		b, err := marshal(v)
		if err != nil {
			return d, err
		}
		fields[k] = b
	}
	raw, err := marshal(fields)
	if err != nil {
		return d, err
	}
	out.raw = raw
	return out, nil
}

func (d DocumentRef) IsFolder() bool {
	return d.Type == DocumentTypeFolder
}

// CountFiles returns the number of non-folder documents.
func CountFiles(docs []DocumentRef) int {
	n := 0
	for _, d := range docs {
		if !d.IsFolder() {
			n++
		}
	}
	return n
}

// DocumentsPath is the REST path of a person's document space.
func DocumentsPath(personID string) string {
	return "/person/" + url.PathEscape(personID) + "/document"
}

// DocumentPath is the REST path of one stored blob.
func DocumentPath(personID, filename string) string {
	return DocumentsPath(personID) + "/" + url.PathEscape(filename)
}

// ParseDocumentPath is the inverse of DocumentPath.
func ParseDocumentPath(path string) (BlobRef, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "person" || parts[2] != "document" {
		return BlobRef{}, false
	}
	person, err := url.PathUnescape(parts[1])
	if err != nil || person == "" {
		return BlobRef{}, false
	}
	filename, err := url.PathUnescape(parts[3])
	if err != nil || filename == "" {
		return BlobRef{}, false
	}
	return BlobRef{PersonID: person, Filename: filename}, true
}

// Upload is a freshly encrypted blob ready to be sent to the server.
type Upload struct {
	Name     string
	MimeType string
	Blob     []byte
}

// marshal is json.Marshal without HTML escaping, so raw values written back
// keep their original bytes.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
