package main

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vidredact/internal/jobs"
)

var classTitler = cases.Title(language.English)

// classLabel renders a persisted class name for people: "credit_card" becomes
// "Credit Card".
func classLabel(class string) string {
	return classTitler.String(strings.ReplaceAll(class, "_", " "))
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(jobs.RoundSeconds(v), 'f', 2, 64)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTimestamp(*t)
}

func statusKindFor(status jobs.Status) statusKind {
	switch status {
	case jobs.StatusDone:
		return statusOK
	case jobs.StatusFailed:
		return statusError
	case jobs.StatusRunning:
		return statusWarn
	default:
		return statusInfo
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
