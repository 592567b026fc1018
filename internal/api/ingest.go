package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"vidredact/internal/jobs"
	"vidredact/internal/services"
)

var workIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ingestForm is the parsed multipart payload of an upload.
type ingestForm struct {
	WorkID      string
	DisplayName string
	Threshold   float64
	Strength    int
	File        *multipart.FileHeader
}

func (s *Server) parseIngestForm(workID, filename, power, strength string, file *multipart.FileHeader) (ingestForm, error) {
	form := ingestForm{
		WorkID:      strings.TrimSpace(workID),
		DisplayName: strings.TrimSpace(filename),
		File:        file,
	}
	if !workIDPattern.MatchString(form.WorkID) {
		return form, services.Wrap(services.ErrValidation, "ingest", "parse", "worknum must be 1-64 letters, digits, '-' or '_'", nil)
	}
	if form.DisplayName == "" {
		return form, services.Wrap(services.ErrValidation, "ingest", "parse", "filename is required", nil)
	}

	threshold, err := strconv.ParseFloat(strings.TrimSpace(power), 64)
	if err != nil {
		return form, services.Wrap(services.ErrValidation, "ingest", "parse", "power must be a number", err)
	}
	form.Threshold = threshold

	strength = strings.TrimSpace(strength)
	if strength == "" {
		form.Strength = s.cfg.Workflow.DefaultMosaicStrength
	} else {
		value, err := strconv.Atoi(strength)
		if err != nil {
			return form, services.Wrap(services.ErrValidation, "ingest", "parse", "mosaic_strength must be an integer", err)
		}
		form.Strength = value
	}
	return form, nil
}

// sourcePath returns <downloads>/<work_id>.<ext>, taking the extension from the
// uploaded file name and defaulting to mp4.
func (s *Server) sourcePath(form ingestForm) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(form.File.Filename), "."))
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		ext = "mp4"
	}
	return filepath.Join(s.cfg.DownloadsDir(), form.WorkID+"."+ext)
}

// saveUpload streams the upload to a temporary file beside dest. The caller
// renames it into place once the order is recorded.
func saveUpload(file *multipart.FileHeader, dest string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp := filepath.Join(filepath.Dir(dest), ".upload-"+uuid.NewString())
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("close upload: %w", err)
	}
	return tmp, nil
}

func (s *Server) newOrder(form ingestForm, source string) (*jobs.WorkOrder, error) {
	order := &jobs.WorkOrder{
		WorkID:              form.WorkID,
		SourcePath:          source,
		DisplayName:         form.DisplayName,
		ConfidenceThreshold: form.Threshold,
		MosaicStrength:      form.Strength,
	}
	if err := order.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "validate", "", err)
	}
	return order, nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, jobs.ErrDuplicate)
}
