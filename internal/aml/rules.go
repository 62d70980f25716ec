// Package aml implements the deterministic anti-money-laundering rule set
// applied to every verification and submission.
package aml

import (
	"fmt"
	"strings"

	"kycintake/internal/domain"
	"kycintake/pkg/logger"

	"github.com/shopspring/decimal"
)

// highRiskScoreFloor is the fraud score at which the high-risk rule fires.
var highRiskScoreFloor = decimal.NewFromInt(71)

// RuleInput carries everything the rule engine needs to evaluate a case.
type RuleInput struct {
	Extracted   domain.ExtractedIdentity
	IsDuplicate bool
	FraudScore  decimal.Decimal
	RiskLevel   string
}

// RuleEngine evaluates the AML rules against a verification outcome. It is
// pure and deterministic given its inputs and the injected blacklist; it
// performs no persistence.
type RuleEngine struct {
	blacklist *Blacklist
	logger    logger.Logger
}

func NewRuleEngine(blacklist *Blacklist, log logger.Logger) *RuleEngine {
	return &RuleEngine{
		blacklist: blacklist,
		logger:    log,
	}
}

// Apply runs every rule independently; all that match contribute a flag, and
// the action is decided by strict precedence afterwards. Evaluation order
// never affects which flags fire.
func (e *RuleEngine) Apply(input RuleInput) domain.AMLVerdict {
	verdict := domain.AMLVerdict{
		Flags:  []string{},
		Action: domain.AMLActionClear,
		Notes:  []string{},
	}

	// Rule 1: duplicate Aadhaar/PAN fingerprint.
	if input.IsDuplicate {
		verdict.Flags = append(verdict.Flags, domain.AMLFlagDuplicateAadhaar)
		verdict.Notes = append(verdict.Notes, "Aadhaar/PAN matches an existing record (duplicate).")
	}

	// Rule 2: blacklisted address. Every address-like field on the record is
	// folded into one combined string before matching.
	combinedAddress := strings.Join(input.Extracted.AddressCandidates(), " ")
	if e.blacklist.Contains(combinedAddress) {
		verdict.Flags = append(verdict.Flags, domain.AMLFlagBlacklistedAddress)
		verdict.Notes = append(verdict.Notes, "Address matches blacklist patterns.")
	}

	// Rule 3: elevated model risk.
	if strings.EqualFold(input.RiskLevel, "high") || input.FraudScore.GreaterThanOrEqual(highRiskScoreFloor) {
		verdict.Flags = append(verdict.Flags, domain.AMLFlagHighFraudRisk)
		verdict.Notes = append(verdict.Notes, fmt.Sprintf("Risk level is High (score: %s).", input.FraudScore.String()))
	}

	// Action precedence: duplicate or blacklisted address auto-flags
	// immediately, bypassing manual review; elevated model risk alone only
	// escalates to a human.
	switch {
	case verdict.HasFlag(domain.AMLFlagDuplicateAadhaar) || verdict.HasFlag(domain.AMLFlagBlacklistedAddress):
		verdict.Action = domain.AMLActionAutoFlag
	case verdict.HasFlag(domain.AMLFlagHighFraudRisk):
		verdict.Action = domain.AMLActionManualReview
	}

	return verdict
}
