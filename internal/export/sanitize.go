package export

import (
	"fmt"
	"mime"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/dharsanguruparan/EventDrop/internal/model"
	"github.com/dharsanguruparan/EventDrop/internal/storage"
)

const maxNameLen = 80

var (
	unsafeRun = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dashRun   = regexp.MustCompile(`-{2,}`)
	dashExt   = regexp.MustCompile(`-+(\.[A-Za-z0-9]+)$`)
)

// Extensions for common media types when neither the original name nor the
// storage key carries one.
var typeExtensions = map[string]string{
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"image/gif":        ".gif",
	"image/webp":       ".webp",
	"image/heic":       ".heic",
	"image/heif":       ".heif",
	"image/avif":       ".avif",
	"image/tiff":       ".tiff",
	"image/bmp":        ".bmp",
	"image/svg+xml":    ".svg",
	"video/mp4":        ".mp4",
	"video/quicktime":  ".mov",
	"video/webm":       ".webm",
	"video/mpeg":       ".mpeg",
	"video/3gpp":       ".3gp",
	"video/x-msvideo":  ".avi",
	"video/x-matroska": ".mkv",
}

// SanitizeName turns a user-supplied filename into a portable ASCII name.
// Accents are folded, runs of other characters become "-", and the result is
// at most 80 characters; an empty result or empty stem becomes "file".
func SanitizeName(name string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, name)
	if err != nil {
		folded = name
	}
	s := unsafeRun.ReplaceAllString(folded, "-")
	s = dashRun.ReplaceAllString(s, "-")
	s = dashExt.ReplaceAllString(s, "$1")
	s = strings.Trim(s, "-")
	if s != "" && path.Ext(s) == s {
		// Only an extension survived.
		s = "file" + s
	}
	if len(s) > maxNameLen {
		s = strings.TrimRight(s[:maxNameLen], "-")
	}
	if s == "" {
		return "file"
	}
	return s
}

// EntryName is the archive path for the record at position i (zero based).
func EntryName(i int, rec model.UploadRecord) string {
	name := SanitizeName(rec.OriginalName)
	if !hasExtension(name) {
		name += fallbackExtension(rec)
	}
	return fmt.Sprintf("%03d-%s", i+1, name)
}

// ArchiveName is the download filename for an event's archive.
func ArchiveName(e *model.Event) string {
	return SanitizeName(e.Name) + "-" + e.ID + ".zip"
}

func hasExtension(name string) bool {
	ext := path.Ext(name)
	return len(ext) > 1 && ext != name
}

func fallbackExtension(rec model.UploadRecord) string {
	if ext := storage.Extension(rec.StorageKey); ext != "" {
		return ext
	}
	mediaType, _, err := mime.ParseMediaType(rec.ContentType)
	if err != nil {
		return ""
	}
	return typeExtensions[mediaType]
}
