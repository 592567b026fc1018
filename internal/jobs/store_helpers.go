package jobs

import (
	"database/sql"
	"errors"
	"time"
)

const orderColumns = "work_id, source_path, display_name, confidence_threshold, mosaic_strength, " +
	"knife, gun, cigarette, middle_finger, credit_card, receipt, license_plate, " +
	"status, result_url, error_message, created_at, updated_at, started_at, finished_at"

func scanOrder(scanner interface{ Scan(dest ...any) error }) (*WorkOrder, error) {
	var (
		order       WorkOrder
		durations   = make([]float64, len(Classes))
		status      int
		resultURL   sql.NullString
		errorMsg    sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)

	dest := []any{
		&order.WorkID,
		&order.SourcePath,
		&order.DisplayName,
		&order.ConfidenceThreshold,
		&order.MosaicStrength,
	}
	for i := range durations {
		dest = append(dest, &durations[i])
	}
	dest = append(dest, &status, &resultURL, &errorMsg, &createdRaw, &updatedRaw, &startedRaw, &finishedRaw)

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	order.Durations = make(Durations, len(Classes))
	for i, class := range Classes {
		order.Durations[class] = durations[i]
	}
	order.Status = Status(status)
	order.ResultURL = resultURL.String
	order.Error = errorMsg.String
	if created, err := parseTimeString(createdRaw.String); err == nil {
		order.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		order.UpdatedAt = updated
	}
	order.StartedAt = parseOptionalTime(startedRaw)
	order.FinishedAt = parseOptionalTime(finishedRaw)
	return &order, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseOptionalTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	t, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
