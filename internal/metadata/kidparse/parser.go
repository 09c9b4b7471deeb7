// Package kidparse extracts structured fund facts from the text of PRIIPs
// Key Information Documents. The documents are machine-generated from a small
// set of templates, so ordered pattern lists per field are reliable: the first
// pattern that matches wins.
package kidparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Extract holds the fund attributes found in a document.
// The expense ratio is the anchor field - a document without one yields no
// extract at all.
type Extract struct {
	Name         string
	TER          *float64 // Total Expense Ratio as a percentage (0.19 = 0.19%)
	RiskLevel    *int     // 1-7 SRRI scale
	Distribution string   // Accumulating, Distributing, or empty
	Replication  string   // Physical, Synthetic, or empty
}

// Field values for Distribution and Replication.
const (
	DistributionAccumulating = "Accumulating"
	DistributionDistributing = "Distributing"
	ReplicationPhysical      = "Physical"
	ReplicationSynthetic     = "Synthetic"
)

var namePattern = regexp.MustCompile(`(?i)Key Information Document\s*\n\s*(.+?)(?:\n|UCITS)`)

// terPatterns are ordered most-specific first. Templates state the ongoing
// cost either in the cost table or in running text.
var terPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Management fees and other[^%]*?(\d+[.,]\d+)\s*%`),
	regexp.MustCompile(`(?i)Ongoing (?:Charges?|costs?)[:\s]*(\d+[.,]\d+)\s*%`),
	regexp.MustCompile(`(?i)(\d+[.,]\d+)\s*%\s*of the value of your investment p\.?a`),
}

var riskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)classified[^0-9]*(\d)\s*out of 7`),
	regexp.MustCompile(`(?i)(\d)\s*out of 7[,\s]*which is`),
}

var (
	accumulatingPattern = regexp.MustCompile(`(?i)\baccumulating\b`)
	distributingPattern = regexp.MustCompile(`(?i)\bdistributing\b`)
	physicalPattern     = regexp.MustCompile(`(?i)\bphysical\b`)
	syntheticPattern    = regexp.MustCompile(`(?i)\bsynthetic\b`)
)

// Parse extracts fund attributes from document text.
// Returns nil unless an expense ratio was found.
func Parse(text string) *Extract {
	extract := &Extract{}

	if match := namePattern.FindStringSubmatch(text); match != nil {
		extract.Name = strings.TrimSpace(match[1])
	}

	for _, pattern := range terPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		// Locale decimal separators vary by document language.
		if ter, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64); err == nil {
			extract.TER = &ter
			break
		}
	}

	for _, pattern := range riskPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if risk, err := strconv.Atoi(match[1]); err == nil && risk >= 1 && risk <= 7 {
			extract.RiskLevel = &risk
			break
		}
		// Out-of-range matches ("8 out of 7") are not an error, just a non-match.
	}

	// A document containing both phrasings resolves by first-match order.
	// Known ambiguity, kept as-is.
	if accumulatingPattern.MatchString(text) {
		extract.Distribution = DistributionAccumulating
	} else if distributingPattern.MatchString(text) {
		extract.Distribution = DistributionDistributing
	}

	if physicalPattern.MatchString(text) {
		extract.Replication = ReplicationPhysical
	} else if syntheticPattern.MatchString(text) {
		extract.Replication = ReplicationSynthetic
	}

	if extract.TER == nil {
		return nil
	}

	return extract
}
