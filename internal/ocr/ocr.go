// Package ocr wraps the external OCR collaborator.
package ocr

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"kycintake/pkg/config"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"
)

// Client recognizes text in a document image. The call is blocking and
// potentially slow; callers should bound it with a context deadline.
type Client interface {
	Recognize(ctx context.Context, imagePath, language string) (string, error)
}

// TesseractClient shells out to the tesseract CLI.
type TesseractClient struct {
	binary  string
	timeout time.Duration
	logger  logger.Logger
}

func NewTesseractClient(cfg config.OCRConfig, log logger.Logger) *TesseractClient {
	return &TesseractClient{
		binary:  cfg.Binary,
		timeout: cfg.Timeout,
		logger:  log,
	}
}

// Recognize runs OCR over the image and returns the raw recognized text.
func (c *TesseractClient) Recognize(ctx context.Context, imagePath, language string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.binary, imagePath, "stdout", "-l", language)
	stdout, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		c.logger.Error("OCR process failed", map[string]interface{}{
			"binary": c.binary,
			"image":  imagePath,
			"stderr": stderr,
			"error":  err.Error(),
		})
		return "", fmt.Errorf("%w: %v", kycerrors.ErrOCRFailed, err)
	}

	return string(stdout), nil
}
