// Package mockreport produces synthetic breast density analysis reports for
// mock mode, when the real backend is unreachable or declined the request.
//
// Generation is pure: no I/O, no shared state beyond the generator's own
// random source. Output is random per call but structurally fixed, so tests
// assert on sections and value ranges rather than literal text.
package mockreport

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// Descriptor identifies the request a mock report is generated for.
type Descriptor struct {
	RequestID string
	Filename  string
	Note      string
	Timestamp time.Time
}

// Bounds for generated probability scores.
const (
	BenignScoreMin    = 0.85
	BenignScoreMax    = 1.0
	MalignantScoreMin = 0.70
	MalignantScoreMax = 1.0
)

// biradsCategory pairs a BI-RADS density class with its fibroglandular
// tissue percentage band.
type biradsCategory struct {
	Class       string
	Label       string
	DensityMin  float64
	DensityMax  float64
	Description string
}

var biradsCategories = []biradsCategory{
	{"A", "Almost entirely fatty", 0, 25, "The breasts are almost entirely fatty."},
	{"B", "Scattered fibroglandular density", 25, 50, "There are scattered areas of fibroglandular density."},
	{"C", "Heterogeneously dense", 50, 75, "The breasts are heterogeneously dense, which may obscure small masses."},
	{"D", "Extremely dense", 75, 100, "The breasts are extremely dense, which lowers the sensitivity of mammography."},
}

var findings = []string{
	"No suspicious masses, architectural distortions, or asymmetries identified.",
	"Benign-appearing scattered calcifications, stable in distribution.",
	"No dominant mass or suspicious microcalcification cluster detected.",
	"Symmetric parenchymal pattern without focal distortion.",
}

var recommendations = []string{
	"Continue routine screening at the interval recommended for your age group.",
	"Supplemental screening may be considered given the assessed tissue density.",
	"Compare with prior examinations if available to confirm stability.",
	"Discuss individual risk factors with your healthcare provider.",
}

// Generator produces mock markdown reports from a uniform random source.
type Generator struct {
	rng *rand.Rand
}

// New creates a generator seeded for deterministic output. A zero seed
// selects a time-derived seed, matching the default randomized behavior.
func New(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate renders one synthetic report for the given descriptor.
func (g *Generator) Generate(d Descriptor) string {
	cat := biradsCategories[g.rng.IntN(len(biradsCategories))]
	density := g.uniform(cat.DensityMin, cat.DensityMax)
	benign := g.uniform(BenignScoreMin, BenignScoreMax)
	malignant := g.uniform(MalignantScoreMin, MalignantScoreMax)
	confidence := g.uniform(0.88, 0.99)

	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var sb strings.Builder
	sb.WriteString("# Breast Density Analysis Report\n\n")

	sb.WriteString("## Study Information\n\n")
	fmt.Fprintf(&sb, "- **Report ID:** %s\n", d.RequestID)
	fmt.Fprintf(&sb, "- **Image:** %s\n", d.Filename)
	fmt.Fprintf(&sb, "- **Date:** %s\n", ts.Format("2006-01-02 15:04"))
	if note := strings.TrimSpace(d.Note); note != "" {
		fmt.Fprintf(&sb, "- **Clinical note:** %s\n", note)
	}
	sb.WriteString("\n")

	sb.WriteString("## Density Assessment\n\n")
	fmt.Fprintf(&sb, "- **BI-RADS category:** %s (%s)\n", cat.Class, cat.Label)
	fmt.Fprintf(&sb, "- **Fibroglandular tissue:** %.1f%%\n", density)
	fmt.Fprintf(&sb, "- **Assessment confidence:** %.2f\n\n", confidence)
	sb.WriteString(cat.Description + "\n\n")

	sb.WriteString("## Findings\n\n")
	fmt.Fprintf(&sb, "%s\n\n", findings[g.rng.IntN(len(findings))])

	sb.WriteString("## Probability Scores\n\n")
	sb.WriteString("| Classification | Probability |\n")
	sb.WriteString("|---|---|\n")
	fmt.Fprintf(&sb, "| Benign | %.4f |\n", benign)
	fmt.Fprintf(&sb, "| Malignant (if present) | %.4f |\n\n", malignant)

	sb.WriteString("## Recommendations\n\n")
	fmt.Fprintf(&sb, "%s\n\n", recommendations[g.rng.IntN(len(recommendations))])

	sb.WriteString("---\n\n")
	sb.WriteString("*This report was generated in demonstration mode from synthetic data. ")
	sb.WriteString("It is not a medical diagnosis and must not be used for clinical decisions.*\n")

	return sb.String()
}

// uniform draws from [min, max).
func (g *Generator) uniform(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}
