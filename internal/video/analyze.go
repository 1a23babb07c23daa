// Package video turns stored frames into timelapse artifacts. The
// analyzer decides which assembly strategy fits the capture density and
// the assembler drives an external encoder to build the videos.
package video

import (
	"sort"

	"lapsecam/internal/store"
)

// DailyGroup is one day dense enough to become its own video
type DailyGroup struct {
	Date   string
	Frames []store.Frame // ascending by time-of-day
}

// TimeGroup is a cross-day frame set sharing one time-of-day
type TimeGroup struct {
	TimeOfDay string
	Frames    []store.Frame // ascending by date
}

// Analysis is the assembly plan for a frame store
type Analysis struct {
	DailyVideos []DailyGroup
	TimeGroups  []TimeGroup
}

// dailyThreshold is the frames-per-day count above which a day gets its
// own video. At or below it, frames join the cross-day pools instead:
// a one-shot-per-day regime reads better as a single long timelapse.
const dailyThreshold = 2

// Analyze partitions frames by date. Dense days become DailyVideos
// entries; sparse days pour their frames into the TimeGroups pool,
// re-partitioned by time-of-day.
func Analyze(frames []store.Frame) Analysis {
	byDate := make(map[string][]store.Frame)
	for _, f := range frames {
		byDate[f.Date] = append(byDate[f.Date], f)
	}

	var analysis Analysis
	byTime := make(map[string][]store.Frame)

	for date, dayFrames := range byDate {
		if len(dayFrames) > dailyThreshold {
			sort.Slice(dayFrames, func(i, j int) bool {
				return dayFrames[i].TimeOfDay < dayFrames[j].TimeOfDay
			})
			analysis.DailyVideos = append(analysis.DailyVideos, DailyGroup{
				Date:   date,
				Frames: dayFrames,
			})
			continue
		}
		for _, f := range dayFrames {
			byTime[f.TimeOfDay] = append(byTime[f.TimeOfDay], f)
		}
	}

	for tod, groupFrames := range byTime {
		sort.Slice(groupFrames, func(i, j int) bool {
			return groupFrames[i].Date < groupFrames[j].Date
		})
		analysis.TimeGroups = append(analysis.TimeGroups, TimeGroup{
			TimeOfDay: tod,
			Frames:    groupFrames,
		})
	}

	sort.Slice(analysis.DailyVideos, func(i, j int) bool {
		return analysis.DailyVideos[i].Date < analysis.DailyVideos[j].Date
	})
	sort.Slice(analysis.TimeGroups, func(i, j int) bool {
		return analysis.TimeGroups[i].TimeOfDay < analysis.TimeGroups[j].TimeOfDay
	})

	return analysis
}
