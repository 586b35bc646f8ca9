package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Extension to MIME type tables for the media formats we accept.
var audioMIMETypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
}

var videoMIMETypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".flv":  "video/x-flv",
}

// MediaTypeForPath returns the declared MIME type for a media file path,
// or empty string when the extension is not a known audio/video format.
func MediaTypeForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mime, ok := audioMIMETypes[ext]; ok {
		return mime
	}
	if mime, ok := videoMIMETypes[ext]; ok {
		return mime
	}
	return ""
}

// IsAudioPath reports whether the path has a known audio extension.
func IsAudioPath(path string) bool {
	_, ok := audioMIMETypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsVideoPath reports whether the path has a known video extension.
func IsVideoPath(path string) bool {
	_, ok := videoMIMETypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MediaExtensions returns every extension the watcher should react to.
func MediaExtensions() []string {
	exts := make([]string, 0, len(audioMIMETypes)+len(videoMIMETypes))
	for ext := range audioMIMETypes {
		exts = append(exts, ext)
	}
	for ext := range videoMIMETypes {
		exts = append(exts, ext)
	}
	return exts
}

// CheckFileExists reports whether path exists and is a regular file.
func CheckFileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CheckDirExists reports whether path exists and is a directory.
func CheckDirExists(dirPath string) bool {
	info, err := os.Stat(dirPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// EnsureDirExists creates the directory if it does not exist yet.
// An empty path is treated as optional and ignored.
func EnsureDirExists(dirPath string) error {
	if dirPath == "" {
		return nil
	}

	if !CheckDirExists(dirPath) {
		return os.MkdirAll(dirPath, 0755)
	}

	return nil
}
