// Package playbackmodule serves cataloged audio over HTTP, with byte-range
// support for seeking and optional on-the-fly transcoding.
package playbackmodule

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chorus/internal/database"
	"chorus/internal/scanerrors"
	"chorus/internal/utils"
)

// Streamer serves track files directly from disk
type Streamer struct{}

// NewStreamer creates a streamer
func NewStreamer() *Streamer {
	return &Streamer{}
}

// Stream writes a track's file to the response, honoring a single byte
// range when one is requested
func (s *Streamer) Stream(c *gin.Context, track *database.Track) {
	file, fileInfo, ok := openTrackFile(c, track)
	if !ok {
		return
	}
	defer file.Close()

	c.Header("Content-Type", utils.GetContentType(track.Path))
	c.Header("Accept-Ranges", "bytes")

	rangeHeader := c.GetHeader("Range")
	if rangeHeader != "" {
		start, end, ok := parseRange(rangeHeader, fileInfo.Size())
		if !ok {
			c.Header("Content-Range", "bytes */"+strconv.FormatInt(fileInfo.Size(), 10))
			c.Header("Content-Length", "0")
			c.Status(http.StatusRequestedRangeNotSatisfiable)
			return
		}

		if _, err := file.Seek(start, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to seek track file"})
			return
		}

		c.Header("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, fileInfo.Size()))
		c.Header("Content-Length", strconv.FormatInt(end-start+1, 10))
		c.Status(http.StatusPartialContent)

		io.CopyN(c.Writer, file, end-start+1)
		return
	}

	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Status(http.StatusOK)
	io.Copy(c.Writer, file)
}

// Download serves the whole file as an attachment
func (s *Streamer) Download(c *gin.Context, track *database.Track) {
	file, fileInfo, ok := openTrackFile(c, track)
	if !ok {
		return
	}
	defer file.Close()

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Length", strconv.FormatInt(fileInfo.Size(), 10))
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(track.Path)))

	c.Status(http.StatusOK)
	io.Copy(c.Writer, file)
}

func openTrackFile(c *gin.Context, track *database.Track) (*os.File, os.FileInfo, bool) {
	file, err := os.Open(track.Path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": scanerrors.ErrFileMissing.Error(),
			"path":  track.Path,
		})
		return nil, nil, false
	}

	fileInfo, err := file.Stat()
	if err != nil {
		file.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to stat track file"})
		return nil, nil, false
	}

	return file, fileInfo, true
}

// parseRange parses a single "bytes=start-end" range against the given
// size. An omitted end means through the last byte; "bytes=-n" means the
// final n bytes.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	if !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false
	}
	ranges := strings.TrimPrefix(header, "bytes=")
	parts := strings.Split(ranges, "-")
	if len(parts) != 2 {
		return 0, 0, false
	}

	if parts[0] == "" {
		// Suffix range: last n bytes
		n, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}

	start, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}

	if parts[1] == "" {
		end = size - 1
	} else {
		end, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, false
		}
	}

	if start > end || end >= size {
		return 0, 0, false
	}
	return start, end, true
}
