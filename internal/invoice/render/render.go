// Package render lays out invoices as PDF documents.
package render

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	mconfig "github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/railzwaylabs/caremarket/internal/invoice/domain"
	"github.com/railzwaylabs/caremarket/internal/money"
)

type totalRow struct {
	label string
	cents int64
}

type Renderer struct {
	companyName string
}

func NewRenderer(cfg config.Config) *Renderer {
	return &Renderer{companyName: cfg.Billing.CompanyName}
}

var (
	bold   = props.Text{Style: fontstyle.Bold, Size: 9}
	normal = props.Text{Size: 9}
	right  = props.Text{Size: 9, Align: align.Right}
	rightB = props.Text{Size: 9, Align: align.Right, Style: fontstyle.Bold}
)

// Render draws header, line table, totals and, for installment invoices,
// the payment schedule.
func (r *Renderer) Render(inv *domain.Invoice, items []domain.LineItem, installments []domain.Installment) ([]byte, error) {
	cfg := mconfig.NewBuilder().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()
	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(8, r.companyName, props.Text{Size: 16, Style: fontstyle.Bold}),
		text.NewCol(4, "INVOICE", props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(5,
		text.NewCol(8, "Invoice number: "+inv.InvoiceNumber, normal),
		text.NewCol(4, "Status: "+string(inv.Status), right),
	)
	m.AddRow(5,
		text.NewCol(8, "Issued: "+formatDate(inv.SentAt, inv.CreatedAt), normal),
		text.NewCol(4, "Due: "+formatDate(inv.DueAt, time.Time{}), right),
	)
	m.AddRow(5,
		text.NewCol(6, "Client: "+inv.ClientID.String(), normal),
		text.NewCol(6, "Provider: "+inv.ProviderID.String(), right),
	)
	m.AddRows(line.NewRow(6))

	m.AddRow(6,
		text.NewCol(5, "Description", bold),
		text.NewCol(1, "Qty", rightB),
		text.NewCol(2, "Unit price", rightB),
		text.NewCol(1, "VAT %", rightB),
		text.NewCol(1, "VAT", rightB),
		text.NewCol(2, "Total", rightB),
	)
	for _, item := range items {
		m.AddRow(5,
			text.NewCol(5, item.Description, normal),
			text.NewCol(1, item.Quantity.String(), right),
			text.NewCol(2, money.Format(item.UnitPriceCents, ""), right),
			text.NewCol(1, item.VATRate.String(), right),
			text.NewCol(1, money.Format(item.VATCents, ""), right),
			text.NewCol(2, money.Format(item.LineTotalCents, ""), right),
		)
	}
	m.AddRows(line.NewRow(6))

	totals := []totalRow{
		{"Net", inv.NetCents},
		{"VAT", inv.VATCents},
		{"Total", inv.TotalCents},
	}
	if inv.DiscountCents > 0 {
		label := "Discount"
		if inv.DiscountCode != nil {
			label += " (" + *inv.DiscountCode + ")"
		}
		totals = append(totals, totalRow{label, -inv.DiscountCents})
	}
	totals = append(totals, totalRow{"Amount due", inv.PayableCents()})

	for _, t := range totals {
		m.AddRow(5,
			text.NewCol(9, t.label, rightB),
			text.NewCol(3, money.Format(t.cents, inv.Currency), right),
		)
	}

	if inv.PaymentType == domain.PaymentTypeInstallment && len(installments) > 0 {
		m.AddRows(line.NewRow(6))
		m.AddRow(6, text.NewCol(12, "Payment schedule", bold))
		for _, in := range installments {
			m.AddRow(5,
				text.NewCol(2, fmt.Sprintf("#%d", in.Sequence), normal),
				text.NewCol(3, in.PercentageDue.StringFixed(2)+"%", right),
				text.NewCol(4, "Due "+formatDate(in.DueAt, time.Time{}), right),
				text.NewCol(3, money.Format(in.AmountDueCents, inv.Currency), right),
			)
		}
	}

	m.AddRow(8, text.NewCol(12,
		fmt.Sprintf("Prices include VAT. Platform commission %s%% applies to provider earnings.", inv.CommissionRate.StringFixed(2)),
		props.Text{Size: 7, Top: 3},
	))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.InvoiceNumber, err)
	}
	return doc.GetBytes(), nil
}

func formatDate(t *time.Time, fallback time.Time) string {
	switch {
	case t != nil:
		return t.UTC().Format("2006-01-02")
	case !fallback.IsZero():
		return fallback.UTC().Format("2006-01-02")
	default:
		return "-"
	}
}
