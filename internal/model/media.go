package model

import (
	"path"
	"strings"
)

// Media kinds
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaAudio = "audio"
)

// Media is a single attachment owned by a marker.
type Media struct {
	ID       string `db:"id" json:"id"`
	MarkerID string `db:"marker_id" json:"-"`
	URL      string `db:"url" json:"url"`
	Kind     string `db:"kind" json:"kind"`
}

// Per-kind upload caps
var MaxMediaSize = map[string]int64{
	MediaImage: 5 * 1024 * 1024,
	MediaVideo: 25 * 1024 * 1024,
	MediaAudio: 10 * 1024 * 1024,
}

var allowedContentTypes = map[string][]string{
	MediaImage: {"image/jpeg", "image/jpg", "image/png", "image/webp", "image/avif", "image/gif", "image/bmp"},
	MediaVideo: {"video/mp4", "video/webm", "video/ogg", "video/quicktime"},
	MediaAudio: {"audio/mp3", "audio/mpeg", "audio/wav", "audio/ogg", "audio/aac", "audio/flac"},
}

var (
	imageExts = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}, "gif": {}, "webp": {}, "avif": {}, "bmp": {}}
	videoExts = map[string]struct{}{"mp4": {}, "webm": {}, "ogg": {}, "mov": {}, "avi": {}}
)

// MediaKindFromContentType maps a MIME type to a media kind by its top-level type.
func MediaKindFromContentType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "video/"):
		return MediaVideo
	case strings.HasPrefix(contentType, "audio/"):
		return MediaAudio
	default:
		return MediaImage
	}
}

// MediaKindFromURL infers the kind from the URL's file extension.
// Unknown extensions are treated as audio.
func MediaKindFromURL(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
	if _, ok := imageExts[ext]; ok {
		return MediaImage
	}
	if _, ok := videoExts[ext]; ok {
		return MediaVideo
	}
	return MediaAudio
}

// IsAllowedContentType reports whether contentType is accepted for the given kind.
func IsAllowedContentType(kind, contentType string) bool {
	for _, ct := range allowedContentTypes[kind] {
		if ct == contentType {
			return true
		}
	}
	return false
}

// AllowedContentTypes lists the accepted MIME types for a kind.
func AllowedContentTypes(kind string) []string {
	return append([]string(nil), allowedContentTypes[kind]...)
}

// UploadURLRequest requests a presigned URL for uploading media directly to R2.
type UploadURLRequest struct {
	Filename      string `json:"filename" validate:"required,max=255"`
	ContentType   string `json:"contentType" validate:"required"`
	ContentLength int64  `json:"contentLength" validate:"gte=0"`
}

// UploadURLResponse returns upload details for direct-to-R2 uploads.
// Client PUTs bytes to UploadURL, then sends PublicURL in the marker's media list.
type UploadURLResponse struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expiresIn"`
}

const (
	MediaFolder        = "media"
	UploadURLExpirySec = 3600
)
