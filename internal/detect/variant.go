package detect

import (
	"fmt"
	"strings"

	"vidredact/internal/jobs"
	"vidredact/internal/services"
)

// Variant describes one detection model.
type Variant struct {
	// Prefix is the work ID prefix that selects this model.
	Prefix string
	// Model is the name sent to the inference service.
	Model string
	// Labels are the model's class names indexed by class id.
	Labels []string
	// classes maps a model label to a persisted counter.
	classes map[string]string
}

var (
	// Moderation detects weapons, cigarettes and offensive gestures.
	Moderation = Variant{
		Prefix: "M",
		Model:  "moderation",
		Labels: []string{"knife", "handgun", "cigarette", "fuckyou"},
		classes: map[string]string{
			"knife":     jobs.ClassKnife,
			"handgun":   jobs.ClassGun,
			"cigarette": jobs.ClassCigarette,
			"fuckyou":   jobs.ClassMiddleFinger,
		},
	}
	// Privacy detects license plates, credit cards and receipts.
	Privacy = Variant{
		Prefix: "P",
		Model:  "privacy",
		Labels: []string{"car_LP", "CreditCards", "Receipt"},
		classes: map[string]string{
			"car_LP":      jobs.ClassLicensePlate,
			"CreditCards": jobs.ClassCreditCard,
			"Receipt":     jobs.ClassReceipt,
		},
	}
)

var variants = []Variant{Moderation, Privacy}

// VariantFor selects the model for workID by its prefix. An unknown prefix is
// a validation error.
func VariantFor(workID string) (Variant, error) {
	for _, v := range variants {
		if strings.HasPrefix(workID, v.Prefix) {
			return v, nil
		}
	}
	return Variant{}, services.Wrap(services.ErrValidation, "detect", "select model",
		fmt.Sprintf("unknown work id prefix %q", workID), nil)
}

// Label returns the class name for a numeric class id.
func (v Variant) Label(classID int) (string, bool) {
	if classID < 0 || classID >= len(v.Labels) {
		return "", false
	}
	return v.Labels[classID], true
}

// PersistedClass maps a model label to its stored counter name.
func (v Variant) PersistedClass(label string) (string, bool) {
	class, ok := v.classes[label]
	return class, ok
}
