// Package report renders a mismatch analysis as a PDF document.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
)

var (
	header = props.Text{Style: fontstyle.Bold, Size: 9}
	cell   = props.Text{Size: 9}
	number = props.Text{Size: 9, Align: align.Right}
	numHdr = props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
)

// Render builds the analysis PDF: per-hypothesis comparison, unresolved
// mismatches and possible upgrades.
func Render(ctx context.Context, r *domain.Report) (io.Reader, error) {
	if r == nil {
		return nil, fmt.Errorf("report is required")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	m.AddRow(16,
		text.NewCol(12, "Hotel Rates Analysis", props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Left}),
	)
	m.AddRow(14,
		col.New(12).Add(
			text.New("Run "+r.RunID+" from "+r.Source, props.Text{Size: 9}),
			text.New("Generated "+r.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"), props.Text{Size: 9, Top: 4}),
			text.New(fmt.Sprintf("Total number of rows: %d", r.TotalRows), props.Text{Size: 9, Top: 8}),
		),
	)

	addComparison(m, r)
	addMismatches(m, r)
	addUpgrades(m, r)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func addComparison(m core.Maroto, r *domain.Report) {
	m.AddRow(12, text.NewCol(12, "Rate Comparisons", props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}))
	m.AddRow(8,
		text.NewCol(6, "Hypothesis", header),
		text.NewCol(2, "Matches", numHdr),
		text.NewCol(2, "Mismatches", numHdr),
		text.NewCol(2, "Match %", numHdr),
	)
	for _, h := range r.Hypotheses {
		m.AddRow(7,
			text.NewCol(6, h.Name, cell),
			text.NewCol(2, strconv.Itoa(h.Matches), number),
			text.NewCol(2, strconv.Itoa(h.Mismatches), number),
			text.NewCol(2, strconv.FormatFloat(h.MatchPercentage, 'f', 2, 64)+"%", number),
		)
	}
}

func addMismatches(m core.Maroto, r *domain.Report) {
	m.AddRow(12, text.NewCol(12, "Mismatch Analysis", props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}))
	m.AddRow(8, text.NewCol(12,
		fmt.Sprintf("Number of mismatches (not matching any discount): %d", r.UnresolvedCount), cell))
	if len(r.UnresolvedPreview) == 0 {
		return
	}

	m.AddRow(8,
		text.NewCol(3, "Booking", header),
		text.NewCol(3, "Room revenue", numHdr),
		text.NewCol(3, "After tax", numHdr),
		text.NewCol(3, "Refundable", numHdr),
	)
	for _, p := range r.UnresolvedPreview {
		m.AddRow(7,
			text.NewCol(3, p.BookingReference, cell),
			text.NewCol(3, formatNumber(p.RoomRevenue, 0), number),
			text.NewCol(3, formatNumber(p.TotalRevenueAfterTax, 0), number),
			text.NewCol(3, formatNumber(p.RefundableRate, 0), number),
		)
		for _, v := range p.Values {
			m.AddRow(5,
				col.New(3),
				text.NewCol(6, v.Name, props.Text{Size: 8}),
				text.NewCol(3, formatNumber(v.Value, 0), props.Text{Size: 8, Align: align.Right}),
			)
		}
	}
}

func addUpgrades(m core.Maroto, r *domain.Report) {
	m.AddRow(12, text.NewCol(12, "Upgrade Analysis", props.Text{Size: 13, Style: fontstyle.Bold, Top: 4}))
	m.AddRow(8, text.NewCol(12,
		fmt.Sprintf("Number of possible upgrades (ending with 9): %d", r.UpgradeCount), cell))
	if len(r.UpgradePreview) == 0 {
		return
	}

	m.AddRow(8,
		text.NewCol(3, "Booking", header),
		text.NewCol(3, "After tax", numHdr),
		text.NewCol(6, "Level one discounts", numHdr),
	)
	for _, p := range r.UpgradePreview {
		cols := []core.Col{
			text.NewCol(3, p.BookingReference, cell),
			text.NewCol(3, formatNumber(p.TotalRevenueAfterTax, 2), number),
		}
		for _, v := range p.Values {
			cols = append(cols, text.NewCol(3, formatNumber(v.Value, 2), number))
		}
		m.AddRow(7, cols...)
	}
}

func formatNumber(v *float64, places int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', places, 64)
}
