package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Settings controls how frame sequences are encoded
type Settings struct {
	// FPS is the playback frame rate; each frame is shown for 1/FPS
	// seconds
	FPS int `yaml:"fps" json:"fps"`
	// Quality is 1 (low) through 5 (high), mapped to a CRF value
	Quality int `yaml:"quality" json:"quality"`
	// Interpolate enables motion interpolation between frames
	Interpolate bool `yaml:"interpolate" json:"interpolate"`
}

func (s Settings) withDefaults() Settings {
	if s.FPS <= 0 {
		s.FPS = 30
	}
	if s.Quality <= 0 {
		s.Quality = 3
	}
	return s
}

// EncodingError means the external encoder failed for one artifact
type EncodingError struct {
	Artifact string
	Output   string
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s failed: %v", e.Artifact, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encoder builds video artifacts from ordered frame sequences
type Encoder interface {
	// EncodeSequence encodes the ordered frames into one artifact at
	// outPath, scaled and padded to width x height
	EncodeSequence(ctx context.Context, framePaths []string, outPath string, s Settings, width, height int) error
	// Concatenate joins the ordered artifacts into one without
	// re-encoding; inputs must share a codec profile
	Concatenate(ctx context.Context, artifactPaths []string, outPath string) error
	// ProbeDimensions returns a frame's pixel dimensions
	ProbeDimensions(ctx context.Context, framePath string) (width, height int, err error)
}

// FFmpegEncoder shells out to ffmpeg and ffprobe
type FFmpegEncoder struct {
	FFmpegPath  string
	FFprobePath string
}

// NewFFmpegEncoder uses ffmpeg/ffprobe from PATH
func NewFFmpegEncoder() *FFmpegEncoder {
	return &FFmpegEncoder{FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"}
}

// Validate checks that ffmpeg is runnable
func (e *FFmpegEncoder) Validate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, e.FFmpegPath, "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not available: %w", err)
	}
	return nil
}

func (e *FFmpegEncoder) EncodeSequence(ctx context.Context, framePaths []string, outPath string, s Settings, width, height int) error {
	if len(framePaths) == 0 {
		return &EncodingError{Artifact: outPath, Err: fmt.Errorf("no frames to encode")}
	}
	s = s.withDefaults()

	listFile, err := writeConcatList(framePaths, 1.0/float64(s.FPS))
	if err != nil {
		return &EncodingError{Artifact: outPath, Err: err}
	}
	defer os.Remove(listFile)

	filters := make([]string, 0, 3)
	if s.Interpolate {
		filters = append(filters, fmt.Sprintf("minterpolate=fps=%d", s.FPS))
	}
	filters = append(filters,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", width, height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", width, height))

	cmd := exec.CommandContext(ctx, e.FFmpegPath,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vf", strings.Join(filters, ","),
		"-r", strconv.Itoa(s.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", qualityToCRF(s.Quality),
		"-pix_fmt", "yuv420p",
		"-y",
		outPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return &EncodingError{Artifact: outPath, Output: string(output), Err: err}
	}
	return nil
}

func (e *FFmpegEncoder) Concatenate(ctx context.Context, artifactPaths []string, outPath string) error {
	if len(artifactPaths) == 0 {
		return &EncodingError{Artifact: outPath, Err: fmt.Errorf("no artifacts to concatenate")}
	}

	var b strings.Builder
	for _, p := range artifactPaths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	listFile := filepath.Join(os.TempDir(), fmt.Sprintf("lapsecam-concat-%d.txt", time.Now().UnixNano()))
	if err := os.WriteFile(listFile, []byte(b.String()), 0o644); err != nil {
		return &EncodingError{Artifact: outPath, Err: err}
	}
	defer os.Remove(listFile)

	cmd := exec.CommandContext(ctx, e.FFmpegPath,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-y",
		outPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(outPath)
		return &EncodingError{Artifact: outPath, Output: string(output), Err: err}
	}
	return nil
}

func (e *FFmpegEncoder) ProbeDimensions(ctx context.Context, framePath string) (int, int, error) {
	cmd := exec.CommandContext(ctx, e.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		framePath,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, fmt.Errorf("probing %s failed: %w", framePath, err)
	}

	parts := strings.Split(strings.TrimSpace(string(out)), "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("unexpected ffprobe output %q for %s", string(out), framePath)
	}
	width, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected ffprobe width %q: %w", parts[0], err)
	}
	height, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected ffprobe height %q: %w", parts[1], err)
	}
	return width, height, nil
}

// writeConcatList writes an ffmpeg concat-demuxer list holding each
// frame for frameSeconds. The final frame is repeated without a
// duration so it is not cut short.
func writeConcatList(framePaths []string, frameSeconds float64) (string, error) {
	var b strings.Builder
	for _, p := range framePaths {
		fmt.Fprintf(&b, "file '%s'\nduration %.4f\n", p, frameSeconds)
	}
	fmt.Fprintf(&b, "file '%s'\n", framePaths[len(framePaths)-1])

	listFile := filepath.Join(os.TempDir(), fmt.Sprintf("lapsecam-frames-%d.txt", time.Now().UnixNano()))
	if err := os.WriteFile(listFile, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write concat list: %w", err)
	}
	return listFile, nil
}

// qualityToCRF maps quality 1 (low) to CRF 28 and 5 (high) to CRF 18
func qualityToCRF(quality int) string {
	crf := 28.0 - float64(quality-1)*2.5
	if crf < 18 {
		crf = 18
	}
	if crf > 28 {
		crf = 28
	}
	return strconv.FormatFloat(crf, 'f', 1, 64)
}
