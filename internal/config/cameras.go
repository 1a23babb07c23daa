package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lapsecam/internal/schedule"
	"lapsecam/internal/video"
)

// Camera is one entry in the YAML camera inventory
type Camera struct {
	ID       string             `yaml:"id"`
	Name     string             `yaml:"name,omitempty"`
	Schedule schedule.Schedule  `yaml:"schedule"`
	Location *schedule.Location `yaml:"location,omitempty"`
	// Video overrides the global encoding settings for this camera
	Video *video.Settings `yaml:"video,omitempty"`
}

type inventory struct {
	Cameras []Camera `yaml:"cameras"`
}

// LoadCameras reads and validates the YAML camera inventory
func LoadCameras(path string) ([]Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read camera inventory %s: %w", path, err)
	}

	var inv inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse camera inventory %s: %w", path, err)
	}
	if len(inv.Cameras) == 0 {
		return nil, fmt.Errorf("camera inventory %s lists no cameras", path)
	}

	seen := make(map[string]struct{}, len(inv.Cameras))
	for i, cam := range inv.Cameras {
		if cam.ID == "" {
			return nil, fmt.Errorf("camera %d has no id", i)
		}
		if _, dup := seen[cam.ID]; dup {
			return nil, fmt.Errorf("duplicate camera id %q", cam.ID)
		}
		seen[cam.ID] = struct{}{}

		if err := cam.Schedule.Validate(); err != nil {
			return nil, fmt.Errorf("camera %q: %w", cam.ID, err)
		}
		if cam.Location != nil {
			if err := cam.Location.Validate(); err != nil {
				return nil, fmt.Errorf("camera %q: %w", cam.ID, err)
			}
		}
	}

	return inv.Cameras, nil
}
