// Package analysis explains booking prices against published refundable
// rates using a ladder of discount hypotheses.
package analysis

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
)

var (
	ten     = decimal.NewFromInt(10)
	hundred = decimal.NewFromInt(100)
)

type Hypothesis struct {
	Name   string
	Factor decimal.Decimal
}

// Classifier evaluates hypothesis values of the form revenue × markup / factor.
type Classifier struct {
	hypotheses       []Hypothesis
	markup           decimal.Decimal
	tolerance        decimal.Decimal
	upgradeDigit     decimal.Decimal
	upgradeTolerance decimal.Decimal
	previewRows      int
}

func NewClassifier(cfg config.MismatchConfig) *Classifier {
	return &Classifier{
		hypotheses: lo.Map(cfg.Hypotheses, func(h config.HypothesisConfig, _ int) Hypothesis {
			return Hypothesis{Name: strings.TrimSpace(h.Name), Factor: decimal.NewFromFloat(h.Factor)}
		}),
		markup:           decimal.NewFromFloat(cfg.Markup),
		tolerance:        decimal.NewFromFloat(cfg.Tolerance),
		upgradeDigit:     decimal.NewFromFloat(cfg.UpgradeDigit),
		upgradeTolerance: decimal.NewFromFloat(cfg.UpgradeTolerance),
		previewRows:      cfg.PreviewRows,
	}
}

func (c *Classifier) Hypotheses() []Hypothesis { return c.hypotheses }

// Values returns one explained price per hypothesis, or nil entries when the
// room revenue is unknown.
func (c *Classifier) Values(roomRevenue *float64) []*decimal.Decimal {
	out := make([]*decimal.Decimal, len(c.hypotheses))
	if roomRevenue == nil {
		return out
	}
	base := decimal.NewFromFloat(*roomRevenue).Mul(c.markup)
	for i, h := range c.hypotheses {
		v := base.Div(h.Factor)
		out[i] = &v
	}
	return out
}

// Matches reports whether value lies within the tolerance of the refundable
// rate, bounds included. A missing side never matches.
func (c *Classifier) Matches(value *decimal.Decimal, refundable *float64) bool {
	if value == nil || refundable == nil {
		return false
	}
	diff := value.Sub(decimal.NewFromFloat(*refundable)).Abs()
	return diff.LessThanOrEqual(c.tolerance)
}

// EndsInUpgradeDigit reports whether x mod 10 is close to the upgrade digit.
// The remainder is taken in [0, 10) for negative values too.
func (c *Classifier) EndsInUpgradeDigit(x decimal.Decimal) bool {
	rem := x.Mod(ten)
	if rem.IsNegative() {
		rem = rem.Add(ten)
	}
	return rem.Sub(c.upgradeDigit).Abs().LessThan(c.upgradeTolerance)
}

// PossibleUpgrade checks the total after tax and every hypothesis value.
func (c *Classifier) PossibleUpgrade(rec domain.Record, values []*decimal.Decimal) bool {
	if rec.TotalRevenueAfterTax != nil && c.EndsInUpgradeDigit(decimal.NewFromFloat(*rec.TotalRevenueAfterTax)) {
		return true
	}
	return lo.SomeBy(values, func(v *decimal.Decimal) bool {
		return v != nil && c.EndsInUpgradeDigit(*v)
	})
}

// Summarize classifies every record. Percentages use the total row count as
// denominator and are zero for an empty input.
func (c *Classifier) Summarize(records []domain.Record) domain.Summary {
	summary := domain.Summary{
		TotalRows:         len(records),
		Hypotheses:        make([]domain.HypothesisResult, len(c.hypotheses)),
		UnresolvedPreview: []domain.MismatchPreview{},
		UpgradePreview:    []domain.UpgradePreview{},
	}
	for i, h := range c.hypotheses {
		summary.Hypotheses[i] = domain.HypothesisResult{Name: h.Name, Factor: h.Factor.InexactFloat64()}
	}

	for _, rec := range records {
		values := c.Values(rec.RoomRevenue)

		resolved := false
		for i, v := range values {
			if c.Matches(v, rec.RefundableRate) {
				summary.Hypotheses[i].Matches++
				resolved = true
			} else {
				summary.Hypotheses[i].Mismatches++
			}
		}

		if !resolved {
			summary.UnresolvedCount++
			if len(summary.UnresolvedPreview) < c.previewRows {
				summary.UnresolvedPreview = append(summary.UnresolvedPreview, c.mismatchPreview(rec, values))
			}
		}
		if c.PossibleUpgrade(rec, values) {
			summary.UpgradeCount++
			if len(summary.UpgradePreview) < c.previewRows {
				summary.UpgradePreview = append(summary.UpgradePreview, c.upgradePreview(rec, values))
			}
		}
	}

	if summary.TotalRows > 0 {
		total := decimal.NewFromInt(int64(summary.TotalRows))
		for i := range summary.Hypotheses {
			pct := decimal.NewFromInt(int64(summary.Hypotheses[i].Matches)).Mul(hundred).Div(total)
			summary.Hypotheses[i].MatchPercentage = pct.Round(2).InexactFloat64()
		}
	}
	return summary
}

func (c *Classifier) mismatchPreview(rec domain.Record, values []*decimal.Decimal) domain.MismatchPreview {
	return domain.MismatchPreview{
		BookingReference:     rec.BookingReference,
		RoomRevenue:          roundFloat(rec.RoomRevenue, 0),
		TotalRevenueAfterTax: roundFloat(rec.TotalRevenueAfterTax, 0),
		RefundableRate:       roundFloat(rec.RefundableRate, 0),
		Values:               c.namedValues(values, len(values), 0),
	}
}

// upgradePreview keeps the first two hypotheses, the level one discounts.
func (c *Classifier) upgradePreview(rec domain.Record, values []*decimal.Decimal) domain.UpgradePreview {
	return domain.UpgradePreview{
		BookingReference:     rec.BookingReference,
		TotalRevenueAfterTax: roundFloat(rec.TotalRevenueAfterTax, 2),
		Values:               c.namedValues(values, 2, 2),
	}
}

func (c *Classifier) namedValues(values []*decimal.Decimal, limit int, places int32) []domain.HypothesisValue {
	limit = min(limit, len(values))
	out := make([]domain.HypothesisValue, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, domain.HypothesisValue{Name: c.hypotheses[i].Name, Value: roundDecimal(values[i], places)})
	}
	return out
}

// Rounding is half to even so previews agree with the usual dataframe output.
func roundDecimal(v *decimal.Decimal, places int32) *float64 {
	if v == nil {
		return nil
	}
	f := v.RoundBank(places).InexactFloat64()
	return &f
}

func roundFloat(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return roundDecimal(&d, places)
}
