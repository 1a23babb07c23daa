// Package store persists captured frames on disk. The filename contract
// YYYY-MM-DD_HHMM.jpg is shared with pre-existing frame archives and
// must never change.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"lapsecam/internal/logger"
)

// frameName matches the stored frame filename contract
var frameName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(\d{4})\.jpg$`)

const (
	// DateLayout is the calendar-day half of a frame key
	DateLayout = "2006-01-02"
	// TimeOfDayLayout is the wall-clock half of a frame key
	TimeOfDayLayout = "1504"
)

// Frame is one stored captured image, identified by (date, timeOfDay)
type Frame struct {
	Date      string // "2006-01-02"
	TimeOfDay string // "1504"
	Path      string
	ModTime   time.Time
}

// Key returns the frame's storage key, the filename stem
func (f Frame) Key() string {
	return f.Date + "_" + f.TimeOfDay
}

// SlotKey splits a capture instant into the (date, timeOfDay) key pair
func SlotKey(at time.Time) (date, timeOfDay string) {
	return at.Format(DateLayout), at.Format(TimeOfDayLayout)
}

// FrameStore is a directory of frame files for one camera
type FrameStore struct {
	dir string
	log logger.Logger
}

// New opens (creating if needed) the frame directory for a camera
func New(dir string) (*FrameStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create frame directory %s: %w", dir, err)
	}
	return &FrameStore{
		dir: dir,
		log: logger.Default().WithComponent(logger.ComponentStore),
	}, nil
}

// Dir returns the store's directory
func (fs *FrameStore) Dir() string {
	return fs.dir
}

// Exists reports whether a frame is already stored for the key
func (fs *FrameStore) Exists(date, timeOfDay string) bool {
	_, err := os.Stat(fs.framePath(date, timeOfDay))
	return err == nil
}

// Write stores frame bytes for the key. The write is atomic: data lands
// in a temp file and is renamed into place, so a failed export never
// leaves a half-written frame.
func (fs *FrameStore) Write(date, timeOfDay string, data []byte) error {
	final := fs.framePath(date, timeOfDay)

	tmp, err := os.CreateTemp(fs.dir, ".frame-*")
	if err != nil {
		return fmt.Errorf("failed to create temp frame file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write frame data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp frame file: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move frame into place: %w", err)
	}

	fs.log.Debug("Frame written", "path", final, "bytes", len(data))
	return nil
}

// ListAll returns every stored frame, ordered by (date, timeOfDay).
// Files that do not match the naming contract are ignored.
func (fs *FrameStore) ListAll() ([]Frame, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	frames := make([]Frame, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := frameName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		frames = append(frames, Frame{
			Date:      m[1],
			TimeOfDay: m[2],
			Path:      filepath.Join(fs.dir, entry.Name()),
			ModTime:   info.ModTime(),
		})
	}

	sort.Slice(frames, func(i, j int) bool { return frames[i].Key() < frames[j].Key() })
	return frames, nil
}

// LatestCapture returns the instant of the newest stored frame,
// interpreted in tz. Used as the daemon's last-capture fallback when no
// state backend is configured.
func (fs *FrameStore) LatestCapture(tz *time.Location) (time.Time, bool, error) {
	frames, err := fs.ListAll()
	if err != nil {
		return time.Time{}, false, err
	}
	if len(frames) == 0 {
		return time.Time{}, false, nil
	}

	last := frames[len(frames)-1]
	at, err := time.ParseInLocation(DateLayout+"_"+TimeOfDayLayout, last.Key(), tz)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("unparseable frame key %q: %w", last.Key(), err)
	}
	return at, true, nil
}

// framePath builds the absolute path for a frame key
func (fs *FrameStore) framePath(date, timeOfDay string) string {
	return filepath.Join(fs.dir, date+"_"+timeOfDay+".jpg")
}
