package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"lapsecam/internal/logger"
	"lapsecam/internal/metrics"
	"lapsecam/internal/store"
)

// Assembler builds and caches video artifacts for one camera
type Assembler struct {
	outDir string
	enc    Encoder
	log    logger.Logger
	stats  *metrics.Collector
}

// NewAssembler opens (creating if needed) the artifact directory
func NewAssembler(outDir string, enc Encoder) (*Assembler, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory %s: %w", outDir, err)
	}
	return &Assembler{
		outDir: outDir,
		enc:    enc,
		log:    logger.Default().WithComponent(logger.ComponentAssembler),
		stats:  metrics.Default(),
	}, nil
}

// BuildResult summarizes one assembly pass
type BuildResult struct {
	DailyArtifacts []string
	FullArtifact   string
	TimeArtifacts  []string
	Built          int
	Reused         int
	Failed         int
}

// BuildAll builds every artifact the analysis calls for. An encoding
// failure skips that artifact and its place in the concatenation but
// never aborts the sibling builds.
func (a *Assembler) BuildAll(ctx context.Context, analysis Analysis, s Settings) BuildResult {
	var res BuildResult

	if len(analysis.DailyVideos) > 0 {
		// All daily artifacts share one resolution so the stream-copy
		// concatenation sees a uniform codec profile
		var allDaily []store.Frame
		for _, g := range analysis.DailyVideos {
			allDaily = append(allDaily, g.Frames...)
		}
		width, height, err := a.maxDimensions(ctx, allDaily)
		if err != nil {
			a.log.Error("Probing daily frames failed", "error", err)
			res.Failed += len(analysis.DailyVideos)
			for range analysis.DailyVideos {
				a.stats.RecordVideoFailed()
			}
		} else {
			for _, g := range analysis.DailyVideos {
				path, reused, err := a.BuildDailyVideo(ctx, g, s, width, height)
				if err != nil {
					a.log.Error("Daily video failed", "date", g.Date, "error", err)
					res.Failed++
					a.stats.RecordVideoFailed()
					continue
				}
				res.DailyArtifacts = append(res.DailyArtifacts, path)
				if reused {
					res.Reused++
				} else {
					res.Built++
				}
			}

			if len(res.DailyArtifacts) > 1 {
				first := analysis.DailyVideos[0].Date
				last := analysis.DailyVideos[len(analysis.DailyVideos)-1].Date
				full, err := a.ConcatenateDaily(ctx, first, last, res.DailyArtifacts)
				if err != nil {
					a.log.Error("Daily concatenation failed", "error", err)
					res.Failed++
					a.stats.RecordVideoFailed()
				} else {
					res.FullArtifact = full
					res.Built++
					a.stats.RecordVideoBuilt()
				}
			}
		}
	}

	for _, g := range analysis.TimeGroups {
		path, reused, err := a.BuildTimeTimelapse(ctx, g, s)
		if err != nil {
			a.log.Error("Time timelapse failed", "time_of_day", g.TimeOfDay, "error", err)
			res.Failed++
			a.stats.RecordVideoFailed()
			continue
		}
		res.TimeArtifacts = append(res.TimeArtifacts, path)
		if reused {
			res.Reused++
		} else {
			res.Built++
		}
	}

	a.log.Info("Assembly finished",
		"built", res.Built, "reused", res.Reused, "failed", res.Failed)
	return res
}

// BuildDailyVideo encodes one day's frames into its cached artifact.
// Returns the artifact path and whether the cached copy was reused.
func (a *Assembler) BuildDailyVideo(ctx context.Context, g DailyGroup, s Settings, width, height int) (string, bool, error) {
	outPath := filepath.Join(a.outDir, "daily_"+g.Date+".mp4")

	if artifactFresh(outPath, g.Frames) {
		a.log.Debug("Daily video up to date", "date", g.Date, "path", outPath)
		a.stats.RecordVideoReused()
		return outPath, true, nil
	}

	if err := a.enc.EncodeSequence(ctx, framePaths(g.Frames), outPath, s, width, height); err != nil {
		return "", false, err
	}

	a.log.Info("Daily video built", "date", g.Date, "frames", len(g.Frames), "path", outPath)
	a.stats.RecordVideoBuilt()
	return outPath, false, nil
}

// ConcatenateDaily joins the per-day artifacts, already in ascending
// date order, into one video spanning the date range. Stream copy, no
// re-encode.
func (a *Assembler) ConcatenateDaily(ctx context.Context, firstDate, lastDate string, artifacts []string) (string, error) {
	outPath := filepath.Join(a.outDir, "full_"+firstDate+"_to_"+lastDate+".mp4")
	if err := a.enc.Concatenate(ctx, artifacts, outPath); err != nil {
		return "", err
	}
	a.log.Info("Daily videos concatenated", "count", len(artifacts), "path", outPath)
	return outPath, nil
}

// BuildTimeTimelapse encodes a cross-day frame group into its cached
// artifact. The resolution is the largest width and height seen in the
// group; smaller frames are scaled and padded to match.
func (a *Assembler) BuildTimeTimelapse(ctx context.Context, g TimeGroup, s Settings) (string, bool, error) {
	outPath := filepath.Join(a.outDir, "timelapse_"+g.TimeOfDay+".mp4")

	if artifactFresh(outPath, g.Frames) {
		a.log.Debug("Time timelapse up to date", "time_of_day", g.TimeOfDay, "path", outPath)
		a.stats.RecordVideoReused()
		return outPath, true, nil
	}

	width, height, err := a.maxDimensions(ctx, g.Frames)
	if err != nil {
		return "", false, err
	}

	if err := a.enc.EncodeSequence(ctx, framePaths(g.Frames), outPath, s, width, height); err != nil {
		return "", false, err
	}

	a.log.Info("Time timelapse built", "time_of_day", g.TimeOfDay, "frames", len(g.Frames), "path", outPath)
	a.stats.RecordVideoBuilt()
	return outPath, false, nil
}

// artifactFresh reports whether the artifact exists and is newer than
// every constituent frame. Rewriting any one frame invalidates it.
func artifactFresh(artifactPath string, frames []store.Frame) bool {
	info, err := os.Stat(artifactPath)
	if err != nil {
		return false
	}
	for _, f := range frames {
		if !info.ModTime().After(f.ModTime) {
			return false
		}
	}
	return true
}

// maxDimensions probes every frame and returns the largest width and
// height observed, rounded up to even values for yuv420p
func (a *Assembler) maxDimensions(ctx context.Context, frames []store.Frame) (int, int, error) {
	var maxW, maxH int
	for _, f := range frames {
		w, h, err := a.enc.ProbeDimensions(ctx, f.Path)
		if err != nil {
			return 0, 0, err
		}
		if w > maxW {
			maxW = w
		}
		if h > maxH {
			maxH = h
		}
	}
	return evenUp(maxW), evenUp(maxH), nil
}

func evenUp(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

func framePaths(frames []store.Frame) []string {
	paths := make([]string, len(frames))
	for i, f := range frames {
		paths[i] = f.Path
	}
	return paths
}
