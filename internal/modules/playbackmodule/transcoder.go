package playbackmodule

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chorus/internal/database"
	"chorus/internal/logger"
	"chorus/internal/scanerrors"
)

const (
	// Bitrate bounds for transcode requests, in kbit/s
	MinBitrate = 64
	MaxBitrate = 320

	// DefaultBitrate is used when the request omits one
	DefaultBitrate = 192
)

// transcodeTarget maps an output format to its ffmpeg codec and muxer
type transcodeTarget struct {
	codec       string
	muxer       string
	contentType string
}

var transcodeTargets = map[string]transcodeTarget{
	"mp3":  {codec: "libmp3lame", muxer: "mp3", contentType: "audio/mpeg"},
	"ogg":  {codec: "libvorbis", muxer: "ogg", contentType: "audio/ogg"},
	"opus": {codec: "libopus", muxer: "opus", contentType: "audio/opus"},
	"aac":  {codec: "aac", muxer: "adts", contentType: "audio/aac"},
}

// Transcoder converts tracks to a requested format on the fly by piping
// ffmpeg output straight to the client
type Transcoder struct {
	ffmpegPath string
}

// NewTranscoder creates a transcoder. ffmpegPath may be empty to use the
// binary from PATH.
func NewTranscoder(ffmpegPath string) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transcoder{ffmpegPath: ffmpegPath}
}

// ValidateRequest checks the requested output format and bitrate
func ValidateRequest(format string, bitrate int) error {
	if _, ok := transcodeTargets[format]; !ok {
		return fmt.Errorf("%w: %q", scanerrors.ErrUnsupportedFormat, format)
	}
	if bitrate < MinBitrate || bitrate > MaxBitrate {
		return fmt.Errorf("%w: must be between %d and %d kbit/s",
			scanerrors.ErrBitrateOutOfRange, MinBitrate, MaxBitrate)
	}
	return nil
}

// Transcode runs ffmpeg over the track and streams its stdout to the
// response. When the client disconnects the process is interrupted, then
// killed if it does not exit promptly.
func (t *Transcoder) Transcode(c *gin.Context, track *database.Track, format string, bitrate int) {
	if err := ValidateRequest(format, bitrate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := os.Stat(track.Path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": scanerrors.ErrFileMissing.Error()})
		return
	}

	target := transcodeTargets[format]
	args := []string{
		"-i", track.Path,
		"-vn",
		"-c:a", target.codec,
		"-b:a", strconv.Itoa(bitrate) + "k",
		"-f", target.muxer,
		"pipe:1",
	}

	cmd := exec.Command(t.ffmpegPath, args...)
	cmd.Stderr = io.Discard

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start transcoder"})
		return
	}

	if err := cmd.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start transcoder"})
		return
	}

	logger.Info("Transcoding track %d to %s at %dk (pid %d)", track.ID, format, bitrate, cmd.Process.Pid)

	done := make(chan struct{})
	go func() {
		select {
		case <-c.Request.Context().Done():
			// Ask ffmpeg to finish, then force it after a grace period
			cmd.Process.Signal(os.Interrupt)
			killTimer := time.AfterFunc(2*time.Second, func() {
				cmd.Process.Kill()
			})
			<-done
			killTimer.Stop()
		case <-done:
		}
	}()

	// Hold the response header until ffmpeg proves it can produce output,
	// so a command that dies immediately still gets an error status
	first := make([]byte, 32*1024)
	n, readErr := io.ReadAtLeast(stdout, first, 1)
	if n == 0 {
		waitErr := cmd.Wait()
		close(done)
		logger.Warn("ffmpeg produced no output for track %d: read=%v wait=%v",
			track.ID, readErr, waitErr)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transcoding failed"})
		return
	}

	c.Header("Content-Type", target.contentType)
	c.Status(http.StatusOK)
	c.Writer.Write(first[:n])

	_, copyErr := io.Copy(c.Writer, stdout)
	waitErr := cmd.Wait()
	close(done)

	if copyErr != nil {
		logger.Debug("Transcode stream for track %d ended early: %v", track.ID, copyErr)
	}
	if waitErr != nil {
		logger.Warn("ffmpeg exited with error for track %d: %v", track.ID, waitErr)
	}
}

// Available reports whether the configured ffmpeg binary can be executed
func (t *Transcoder) Available() bool {
	if _, err := exec.LookPath(t.ffmpegPath); err != nil {
		return false
	}
	return true
}
