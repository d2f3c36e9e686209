// Package assets loads the static images shown next to chat messages.
package assets

import (
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/aigw/simplychat/internal/chat"
)

type Image struct {
	Data        []byte
	ContentType string
}

// Avatars holds the role images read once at startup. A role without an
// image is rendered without one.
type Avatars struct {
	images map[chat.Role]*Image
}

// LoadAvatars reads both avatar files. Unreadable files are logged and
// skipped.
func LoadAvatars(userPath, assistantPath string) *Avatars {
	a := &Avatars{images: make(map[chat.Role]*Image)}
	a.load(chat.RoleUser, userPath)
	a.load(chat.RoleAssistant, assistantPath)
	return a
}

func (a *Avatars) load(role chat.Role, path string) {
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("role", string(role)).Str("path", path).Msg("Avatar image unavailable")
		return
	}

	a.images[role] = &Image{
		Data:        data,
		ContentType: http.DetectContentType(data),
	}
	log.Debug().Str("role", string(role)).Str("path", path).Int("bytes", len(data)).Msg("Loaded avatar image")
}

// Get returns the image for role.
func (a *Avatars) Get(role chat.Role) (*Image, bool) {
	img, ok := a.images[role]
	return img, ok
}

// Has reports whether an image is loaded for role.
func (a *Avatars) Has(role chat.Role) bool {
	_, ok := a.images[role]
	return ok
}
