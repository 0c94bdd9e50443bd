package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dharsanguruparan/EventDrop/internal/model"
)

var (
	eventIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	namePattern    = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*(\.[A-Za-z0-9]{1,10})?$`)
	extPattern     = regexp.MustCompile(`^[a-z0-9]{1,10}$`)
)

// ValidEventID reports whether id can be used as a key namespace.
func ValidEventID(id string) bool {
	return eventIDPattern.MatchString(id)
}

// NewKey generates "{eventID}/{unixMillis}-{random}{.ext}". Only the extension
// is taken from originalName; the key body is always generated.
func NewKey(eventID, originalName string, now time.Time) (string, error) {
	if !ValidEventID(eventID) {
		return "", fmt.Errorf("%w: invalid event id %q", model.ErrValidation, eventID)
	}
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	name := strconv.FormatInt(now.UnixMilli(), 10) + "-" + hex.EncodeToString(buf) + Extension(originalName)
	return eventID + "/" + name, nil
}

// Extension returns the lowercased extension of name including the dot, or ""
// when it is missing or not purely alphanumeric.
func Extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	ext := strings.ToLower(name[idx+1:])
	if !extPattern.MatchString(ext) {
		return ""
	}
	return "." + ext
}

// CheckKey rejects keys that do not sit directly inside a valid event
// namespace.
func CheckKey(key string) error {
	dir, name := path.Split(key)
	dir = strings.TrimSuffix(dir, "/")
	if !ValidEventID(dir) || !namePattern.MatchString(name) {
		return fmt.Errorf("%w: key %q escapes event namespace", model.ErrValidation, key)
	}
	return nil
}
