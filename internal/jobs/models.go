package jobs

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Status is the persisted integer lifecycle code of a work order.
type Status int

const (
	StatusFailed  Status = -1
	StatusPending Status = 0
	StatusRunning Status = 1
	StatusDone    Status = 2
)

// InterruptedReason is recorded on orders left RUNNING by a previous daemon.
const InterruptedReason = "interrupted by daemon restart"

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ParseStatus accepts either the name or the integer code of a status.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pending", "0":
		return StatusPending, true
	case "running", "1":
		return StatusRunning, true
	case "done", "2":
		return StatusDone, true
	case "failed", "-1":
		return StatusFailed, true
	}
	return 0, false
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// CanTransition reports whether moving from s to next is permitted.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning
	case StatusRunning:
		return next == StatusDone || next == StatusFailed
	default:
		return false
	}
}

// Persisted detection classes. Every work order carries one duration counter
// per class, in this order.
const (
	ClassKnife        = "knife"
	ClassGun          = "gun"
	ClassCigarette    = "cigarette"
	ClassMiddleFinger = "middle_finger"
	ClassCreditCard   = "credit_card"
	ClassReceipt      = "receipt"
	ClassLicensePlate = "license_plate"
)

// Classes lists the persisted detection classes in column order.
var Classes = []string{
	ClassKnife,
	ClassGun,
	ClassCigarette,
	ClassMiddleFinger,
	ClassCreditCard,
	ClassReceipt,
	ClassLicensePlate,
}

// Durations maps a persisted class to the seconds it was visible.
type Durations map[string]float64

// Normalized returns a copy holding every persisted class, rounded to two
// decimals. Unknown classes are dropped.
func (d Durations) Normalized() Durations {
	out := make(Durations, len(Classes))
	for _, class := range Classes {
		out[class] = RoundSeconds(d[class])
	}
	return out
}

// RoundSeconds rounds to two decimal places.
func RoundSeconds(v float64) float64 {
	return math.Round(v*100) / 100
}

// WorkOrder is one redaction job.
type WorkOrder struct {
	WorkID              string
	SourcePath          string
	DisplayName         string
	ConfidenceThreshold float64
	MosaicStrength      int
	Durations           Durations
	Status              Status
	ResultURL           string
	Error               string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	StartedAt           *time.Time
	FinishedAt          *time.Time
}

// Validate checks the fields a caller must supply on insert.
func (w *WorkOrder) Validate() error {
	if w == nil {
		return fmt.Errorf("work order is nil")
	}
	if strings.TrimSpace(w.WorkID) == "" {
		return fmt.Errorf("work id is required")
	}
	if strings.TrimSpace(w.SourcePath) == "" {
		return fmt.Errorf("source path is required")
	}
	if strings.TrimSpace(w.DisplayName) == "" {
		return fmt.Errorf("display name is required")
	}
	if w.ConfidenceThreshold <= 0 || w.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v outside (0,1]", w.ConfidenceThreshold)
	}
	if w.MosaicStrength <= 0 {
		return fmt.Errorf("mosaic strength must be positive, got %d", w.MosaicStrength)
	}
	return nil
}

// Elapsed returns the processing time of a finished order, or zero.
func (w *WorkOrder) Elapsed() time.Duration {
	if w == nil || w.StartedAt == nil || w.FinishedAt == nil {
		return 0
	}
	return w.FinishedAt.Sub(*w.StartedAt)
}
