package redact

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"vidredact/internal/detect"
	"vidredact/internal/jobs"
)

// DetectionEvent records the detections that met the threshold in one frame.
type DetectionEvent struct {
	Timestamp  float64          `json:"timestamp"`
	Frame      int              `json:"frame_number"`
	Detections []EventDetection `json:"detections"`
}

// EventDetection is the serialized form of a detection.
type EventDetection struct {
	Class       string  `json:"class"`
	Confidence  float64 `json:"confidence"`
	Coordinates [4]int  `json:"coordinates"`
}

func newEventDetection(d detect.Detection) EventDetection {
	return EventDetection{
		Class:       d.Class,
		Confidence:  d.Confidence,
		Coordinates: [4]int{d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2},
	}
}

// WriteDump writes events to path as indented JSON.
func WriteDump(path string, events []DetectionEvent) error {
	if events == nil {
		events = []DetectionEvent{}
	}
	data, err := json.MarshalIndent(events, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal detections: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write detections: %w", err)
	}
	return nil
}

// ReadDump loads events written by WriteDump.
func ReadDump(path string) ([]DetectionEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}
	var events []DetectionEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("parse detections: %w", err)
	}
	return events, nil
}

// Aggregate estimates how long each class was on screen: the number of
// distinct timestamps at which it was detected divided by fps, rounded to
// two decimals. Keys are the model's raw labels.
func Aggregate(events []DetectionEvent, fps float64) map[string]float64 {
	if fps <= 0 {
		fps = defaultFrameRate
	}
	seen := make(map[string]map[float64]struct{})
	for _, event := range events {
		for _, d := range event.Detections {
			set, ok := seen[d.Class]
			if !ok {
				set = make(map[float64]struct{})
				seen[d.Class] = set
			}
			set[event.Timestamp] = struct{}{}
		}
	}
	out := make(map[string]float64, len(seen))
	for class, stamps := range seen {
		out[class] = jobs.RoundSeconds(float64(len(stamps)) / fps)
	}
	return out
}

// PersistedDurations maps raw-label durations onto the stored class counters
// of variant. It also returns labels the variant does not know, sorted.
func PersistedDurations(variant detect.Variant, raw map[string]float64) (jobs.Durations, []string) {
	out := make(jobs.Durations, len(jobs.Classes))
	var unknown []string
	for label, seconds := range raw {
		class, ok := variant.PersistedClass(label)
		if !ok {
			unknown = append(unknown, label)
			continue
		}
		out[class] += seconds
	}
	sort.Strings(unknown)
	return out.Normalized(), unknown
}
