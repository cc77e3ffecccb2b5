package models

import "time"

// Document is a stored person file. The blob itself lives in object storage
// under StorageKey.
type Document struct {
	Filename       string
	OriginalName   string
	MimeType       string
	Size           int64
	PersonID       string
	OrganisationID string
	StorageKey     string
	CreatedAt      time.Time
}

// FileInfo is what an upload returns.
type FileInfo struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalname"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
}

func (d *Document) Info() FileInfo {
	return FileInfo{Filename: d.Filename, OriginalName: d.OriginalName, MimeType: d.MimeType, Size: d.Size}
}
