package blob

import (
	"messenger/domain"
	"messenger/errors"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

// sniffLen is the amount of content mimetype needs for every format we accept.
const sniffLen = 512

var (
	imageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"}
	videoTypes = []string{"video/mp4", "video/avi", "video/mov", "video/quicktime", "video/webm"}
	audioTypes = []string{"audio/mpeg", "audio/mp3", "audio/wav", "audio/ogg", "audio/aac", "audio/m4a", "audio/webm", "audio/x-m4a"}
)

// KindOf classifies a declared content type. Parameters such as charset are ignored.
func KindOf(declared string) (domain.FileKind, error) {
	mt, _, err := mime.ParseMediaType(strings.ToLower(strings.TrimSpace(declared)))
	if err != nil {
		return "", errors.ErrUnsupportedMedia
	}
	switch {
	case lo.Contains(imageTypes, mt):
		return domain.FileImage, nil
	case lo.Contains(videoTypes, mt):
		return domain.FileVideo, nil
	case lo.Contains(audioTypes, mt):
		return domain.FileAudio, nil
	}
	return "", errors.ErrUnsupportedMedia
}

// Matches checks the sniffed content against the declared kind.
// Video and audio share containers (webm, mp4) so either family is accepted for both.
func Matches(kind domain.FileKind, head []byte) bool {
	detected := mimetype.Detect(head).String()
	family, _, _ := strings.Cut(detected, "/")
	switch kind {
	case domain.FileImage:
		return family == "image"
	case domain.FileVideo, domain.FileAudio:
		return family == "video" || family == "audio"
	}
	return false
}

// folder is where an upload lands. Audio always goes to its own folder.
func folder(kind domain.FileKind, scope Scope) string {
	if kind == domain.FileAudio {
		return "audio"
	}
	return string(scope)
}
