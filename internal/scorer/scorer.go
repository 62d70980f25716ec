// Package scorer invokes the external fraud-scoring model.
//
// The model is a black box: it receives a base64-encoded JSON feature payload
// and the source image path as arguments, and prints a single JSON object on
// stdout. A non-zero exit or unparseable output is fatal for the calling
// request since no verdict can be produced without a score.
package scorer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"kycintake/pkg/config"
	kycerrors "kycintake/pkg/errors"
	"kycintake/pkg/logger"

	"github.com/shopspring/decimal"
)

// FeatureVector is the serialized input contract of the scoring model.
type FeatureVector struct {
	IsDuplicate         bool    `json:"is_duplicate"`
	AadhaarNumber       string  `json:"aadhaar_number"`
	PANNumber           string  `json:"pan_number"`
	NameSimilarityScore float64 `json:"name_similarity_score"`
	NameOnDoc           string  `json:"name_on_doc"`
	NameInput           string  `json:"name_input"`
	Type                string  `json:"type"`
}

// Result is the scoring model's output contract.
type Result struct {
	FraudScore decimal.Decimal `json:"fraud_score"`
	RiskLevel  string          `json:"risk_level"`
	Reasons    []string        `json:"reasons"`
}

// Client scores a feature vector against the source document image.
type Client interface {
	Score(ctx context.Context, features FeatureVector, imagePath string) (*Result, error)
}

// ProcessClient shells out to the scoring script.
type ProcessClient struct {
	command string
	script  string
	timeout time.Duration
	logger  logger.Logger
}

// NewProcessClient builds a scorer client from configuration.
func NewProcessClient(cfg config.ScorerConfig, log logger.Logger) *ProcessClient {
	return &ProcessClient{
		command: cfg.Command,
		script:  cfg.Script,
		timeout: cfg.Timeout,
		logger:  log,
	}
}

// Score runs the scoring process once; it is never retried automatically.
func (c *ProcessClient) Score(ctx context.Context, features FeatureVector, imagePath string) (*Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(features)
	if err != nil {
		return nil, kycerrors.Wrap(err, "failed to encode feature vector")
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	cmd := exec.CommandContext(ctx, c.command, c.script, encoded, imagePath)
	stdout, err := cmd.Output()
	if err != nil {
		stderr := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = string(exitErr.Stderr)
		}
		c.logger.Error("Fraud scorer process failed", map[string]interface{}{
			"command": c.command,
			"script":  c.script,
			"stderr":  stderr,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", kycerrors.ErrScoringFailed, err)
	}

	return ParseResult(stdout)
}

// ParseResult decodes the scorer's stdout into a Result. Split out so output
// handling is testable without spawning a process.
func ParseResult(stdout []byte) (*Result, error) {
	var result Result
	if err := json.Unmarshal(stdout, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", kycerrors.ErrScorerOutputNotJSON, err)
	}
	return &result, nil
}
