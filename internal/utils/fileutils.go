package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// AudioExtensions contains the audio file extensions accepted for ingestion
var AudioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".wav":  true,
}

// IsAudioFile checks if a file has a supported audio extension
func IsAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return AudioExtensions[ext]
}

// HashFile calculates the SHA-256 hash of a file, streaming it in 64KB
// chunks so large files are never loaded into memory.
func HashFile(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	buffer := make([]byte, 65536)

	for {
		n, err := file.Read(buffer)
		if n > 0 {
			hasher.Write(buffer[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// GetContentType returns the appropriate content type for an audio file.
// The streaming table additionally recognizes .aac.
func GetContentType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}

// pathHazards are characters stripped from folder name components
const pathHazards = `/\?%*:|"<>`

// SanitizePathComponent makes a tag value safe to use as a single folder
// name: path-hazardous characters and leading dots are stripped, whitespace
// is collapsed, and the result is lower-cased. An empty result falls back
// to "unknown".
func SanitizePathComponent(name string) string {
	var b strings.Builder
	for _, r := range name {
		if strings.ContainsRune(pathHazards, r) {
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.Join(strings.Fields(b.String()), " ")
	cleaned = strings.TrimLeft(cleaned, ".")
	cleaned = strings.ToLower(strings.TrimSpace(cleaned))

	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}

// SortName derives a stable sort key from a display name by stripping a
// leading article ("the", "a", "an") and lower-casing.
func SortName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(lowered, article) && len(lowered) > len(article) {
			return strings.TrimSpace(lowered[len(article):])
		}
	}
	return lowered
}
