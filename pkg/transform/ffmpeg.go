package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"

	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
)

// FileInfo describes a probed media file
type FileInfo struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
	Format   string  `json:"format"`
}

// Transcoder runs ffmpeg and ffprobe as subprocesses
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	logger      logger.Logger
}

// NewTranscoder creates a Transcoder. Empty paths fall back to looking
// up ffmpeg/ffprobe on PATH.
func NewTranscoder(ffmpegPath, ffprobePath string, timeout time.Duration, log logger.Logger) *Transcoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Transcoder{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
		logger:      log,
	}
}

// CropVideo re-encodes inputPath into outputPath with the region
// applied as an ffmpeg crop filter
func (t *Transcoder) CropVideo(ctx context.Context, inputPath, outputPath string, region Region) error {
	if err := region.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{
		"-i", inputPath,
		"-vf", region.FilterArg(),
		"-c:v", "libx264",
		"-c:a", "aac",
		"-preset", "fast",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		t.logger.ErrorWithFields("ffmpeg crop failed", map[string]interface{}{
			"error":  err.Error(),
			"stderr": truncate(stderr.String(), 512),
		})
		if ctx.Err() == context.DeadlineExceeded {
			return errs.New(errs.ErrorTypeTransform, "video processing timed out")
		}
		return errs.New(errs.ErrorTypeTransform, "video processing failed")
	}

	t.logger.DebugWithFields("ffmpeg crop finished", map[string]interface{}{
		"filter":   region.FilterArg(),
		"duration": time.Since(start).String(),
	})
	return nil
}

// ffprobe -print_format json output, reduced to the fields we read
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// ProbeFile inspects a media file with ffprobe and returns its
// dimensions, duration and container format
func (t *Transcoder) ProbeFile(ctx context.Context, path string) (*FileInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	cmd := exec.CommandContext(ctx, t.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		t.logger.ErrorWithFields("ffprobe failed", map[string]interface{}{
			"error":  err.Error(),
			"stderr": truncate(stderr.String(), 512),
		})
		return nil, errs.New(errs.ErrorTypeTransform, "could not read file information")
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeTransform, "could not parse probe output", err)
	}

	info := &FileInfo{Format: out.Format.FormatName}
	// ffprobe reports duration as a decimal string
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	for _, s := range out.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			break
		}
	}
	return info, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
