package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"login-portal/internal/compare"
)

// Tool result statuses.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

const (
	MsgFilesRequired = "Both files required"
	MsgFilesMatch    = "✅ FILES MATCH PERFECTLY"
	MsgFilesDiffer   = "❌ FILES DO NOT MATCH"
	MsgValuesMatch   = "✅ VALUES MATCH"
	MsgValuesDiffer  = "❌ VALUES DO NOT MATCH"
)

// ToolResult is rendered in a tool page's result region.
type ToolResult struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Match   *bool               `json:"match,omitempty"`
	Details []compare.Mismatch  `json:"details,omitempty"`
	Report  *compare.FileReport `json:"report,omitempty"`
}

// Upload is one file received from a form.
type Upload struct {
	Filename string
	Body     io.Reader
}

// ToolService runs the dashboard's data checking tools.
type ToolService interface {
	EncloseValues(input string) string
	CompareValues(boxes []string) ToolResult
	VerifyFiles(ctx context.Context, first, second *Upload) ToolResult
}

type ToolOptions struct {
	UploadDir string
	Logger    *logrus.Logger
}

type toolService struct {
	uploadDir string
	logger    *logrus.Logger
}

func NewToolService(opts ToolOptions) ToolService {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = os.TempDir()
	}
	return &toolService{
		uploadDir: opts.UploadDir,
		logger:    opts.Logger,
	}
}

func (s *toolService) EncloseValues(input string) string {
	return compare.Enclose(input)
}

func (s *toolService) CompareValues(boxes []string) ToolResult {
	mismatches, err := compare.CompareValues(boxes)
	if errors.Is(err, compare.ErrTooFewBoxes) {
		return ToolResult{Status: StatusError, Message: compare.MsgTooFewBoxes}
	}
	if len(mismatches) == 0 {
		return ToolResult{Status: StatusSuccess, Message: MsgValuesMatch}
	}
	return ToolResult{Status: StatusFail, Message: MsgValuesDiffer, Details: mismatches}
}

func (s *toolService) VerifyFiles(ctx context.Context, first, second *Upload) ToolResult {
	if first == nil || second == nil {
		return ToolResult{Status: StatusError, Message: MsgFilesRequired}
	}
	no := false

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return s.fault(fmt.Errorf("create upload dir: %w", err))
	}

	firstPath, err := s.save(ctx, first)
	if err != nil {
		return s.fault(err)
	}
	defer s.remove(firstPath)

	secondPath, err := s.save(ctx, second)
	if err != nil {
		return s.fault(err)
	}
	defer s.remove(secondPath)

	report, err := compare.CompareFiles(firstPath, secondPath)
	if err != nil {
		res := s.fault(err)
		res.Match = &no
		return res
	}

	s.logger.WithFields(logrus.Fields{
		"first":          first.Filename,
		"second":         second.Filename,
		"match":          report.Match,
		"reason":         report.Reason,
		"rows":           report.FirstRows,
		"only_in_first":  len(report.OnlyInFirst),
		"only_in_second": len(report.OnlyInSecond),
		"count_diffs":    len(report.CountDiffs),
	}).Info("file verification finished")

	match := report.Match
	res := ToolResult{Match: &match, Report: &report}
	if match {
		res.Status, res.Message = StatusSuccess, MsgFilesMatch
	} else {
		res.Status, res.Message = StatusFail, MsgFilesDiffer
	}
	return res
}

// save writes an upload under a random name, keeping only its extension so the
// table reader can pick a parser.
func (s *toolService) save(ctx context.Context, up *Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(up.Filename)))
	path := filepath.Join(s.uploadDir, uuid.NewString()+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload %s: %w", up.Filename, err)
	}
	_, copyErr := io.Copy(f, up.Body)
	closeErr := f.Close()
	if copyErr != nil {
		s.remove(path)
		return "", fmt.Errorf("write upload %s: %w", up.Filename, copyErr)
	}
	if closeErr != nil {
		s.remove(path)
		return "", fmt.Errorf("close upload %s: %w", up.Filename, closeErr)
	}
	return path, nil
}

func (s *toolService) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warnf("remove upload %s: %v", path, err)
	}
}

func (s *toolService) fault(err error) ToolResult {
	s.logger.WithError(err).Warn("file verification failed")
	return ToolResult{Status: StatusError, Message: fmt.Sprintf("Error processing files: %v", err)}
}
