package metadata

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// ffprobe availability cache, keyed by binary path
var (
	ffprobeCheckMutex    sync.RWMutex
	ffprobeAvailable     = make(map[string]bool)
	ffprobeCheckTime     = make(map[string]time.Time)
	ffprobeCheckInterval = 5 * time.Minute
)

// ffprobeOutput represents the JSON output from ffprobe
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitRate    string `json:"bit_rate"`
}

// TechnicalInfo holds technical audio information extracted from ffprobe
type TechnicalInfo struct {
	Duration   float64 // seconds
	Bitrate    int     // bits per second
	SampleRate int
	Channels   int
	Codec      string
}

// ExtractTechnicalInfo runs ffprobe against the file and parses duration,
// bitrate and stream info from its JSON output.
func ExtractTechnicalInfo(ffprobePath, filePath string) (*TechnicalInfo, error) {
	cmd := exec.Command(ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath)

	output, err := cmd.Output()
	if err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("ffprobe failed with exit code %d: %s", exitError.ExitCode(), string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe command failed: %w", err)
	}

	var probeOutput ffprobeOutput
	if err := json.Unmarshal(output, &probeOutput); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var audioStream *ffprobeStream
	for i := range probeOutput.Streams {
		if probeOutput.Streams[i].CodecType == "audio" {
			audioStream = &probeOutput.Streams[i]
			break
		}
	}

	if audioStream == nil {
		return nil, fmt.Errorf("no audio stream found in file")
	}

	info := &TechnicalInfo{
		Codec:    audioStream.CodecName,
		Channels: audioStream.Channels,
	}

	// Prefer the stream bitrate over the container bitrate
	if audioStream.BitRate != "" {
		if bitrate, err := strconv.Atoi(audioStream.BitRate); err == nil {
			info.Bitrate = bitrate
		}
	} else if probeOutput.Format.BitRate != "" {
		if bitrate, err := strconv.Atoi(probeOutput.Format.BitRate); err == nil {
			info.Bitrate = bitrate
		}
	}

	if audioStream.SampleRate != "" {
		if sampleRate, err := strconv.Atoi(audioStream.SampleRate); err == nil {
			info.SampleRate = sampleRate
		}
	}

	if probeOutput.Format.Duration != "" {
		if duration, err := strconv.ParseFloat(probeOutput.Format.Duration, 64); err == nil {
			info.Duration = duration
		}
	}

	return info, nil
}

// IsFFProbeAvailable checks if ffprobe is available (cached for 5 minutes)
func IsFFProbeAvailable(ffprobePath string) bool {
	ffprobeCheckMutex.RLock()
	if checked, ok := ffprobeCheckTime[ffprobePath]; ok && time.Since(checked) < ffprobeCheckInterval {
		result := ffprobeAvailable[ffprobePath]
		ffprobeCheckMutex.RUnlock()
		return result
	}
	ffprobeCheckMutex.RUnlock()

	ffprobeCheckMutex.Lock()
	defer ffprobeCheckMutex.Unlock()

	if checked, ok := ffprobeCheckTime[ffprobePath]; ok && time.Since(checked) < ffprobeCheckInterval {
		return ffprobeAvailable[ffprobePath]
	}

	err := exec.Command(ffprobePath, "-version").Run()
	ffprobeAvailable[ffprobePath] = err == nil
	ffprobeCheckTime[ffprobePath] = time.Now()

	return err == nil
}
