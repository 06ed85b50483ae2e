package printing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/fruitstand/backend/internal/domain/order"
	"golang.org/x/text/language"
)

var packingSlipTemplate = template.Must(template.New("packing_slip").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Packing slip {{.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #222; }
h1 { font-size: 20px; margin: 0 0 4px; }
.meta { color: #555; margin-bottom: 16px; }
.ship-to { margin-bottom: 16px; }
table { width: 100%; border-collapse: collapse; }
th, td { text-align: left; padding: 6px 4px; border-bottom: 1px solid #ddd; }
td.qty, th.qty { text-align: right; width: 60px; }
.notes { margin-top: 16px; padding: 8px; background: #f6f6f6; }
</style>
</head>
<body>
<h1>{{.StoreName}}</h1>
<div class="meta">Order {{.Number}} &middot; placed {{.PlacedAt}}</div>
<div class="ship-to">
<strong>Ship to</strong><br>
{{range .Address}}{{.}}<br>{{end}}
</div>
<table>
<thead><tr><th>SKU</th><th>Item</th><th class="qty">Qty</th></tr></thead>
<tbody>
{{range .Items}}<tr><td>{{.SKU}}</td><td>{{.Name}}</td><td class="qty">{{.Quantity}}</td></tr>
{{end}}</tbody>
</table>
<p>{{.UnitCount}} unit(s) &middot; order total {{.Total}}</p>
{{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
</body>
</html>
`))

type packingSlipLine struct {
	SKU      string
	Name     string
	Quantity int
}

type packingSlipView struct {
	StoreName string
	Number    string
	PlacedAt  string
	Address   []string
	Items     []packingSlipLine
	UnitCount int
	Total     string
	Notes     string
}

// PackingSlipPrinter renders an order's packing slip to PDF
type PackingSlipPrinter struct {
	renderer  PDFRenderer
	storeName string
}

// NewPackingSlipPrinter creates a printer using the given renderer
func NewPackingSlipPrinter(renderer PDFRenderer, storeName string) *PackingSlipPrinter {
	return &PackingSlipPrinter{renderer: renderer, storeName: storeName}
}

// PackingSlipHTML renders the slip document for an order
func (p *PackingSlipPrinter) PackingSlipHTML(o *order.Order) (string, error) {
	view := packingSlipView{
		StoreName: p.storeName,
		Number:    o.Number,
		PlacedAt:  o.PlacedAt.Format("Jan 2, 2006"),
		Address:   o.ShippingAddress.Lines(),
		Total:     o.Total.Format(language.AmericanEnglish),
		Notes:     o.Notes,
	}
	for _, it := range o.Items {
		name := it.ProductName
		if it.VariantLabel != "" {
			name += " (" + it.VariantLabel + ")"
		}
		view.Items = append(view.Items, packingSlipLine{SKU: it.SKU, Name: name, Quantity: it.Quantity})
		view.UnitCount += it.Quantity
	}

	var buf bytes.Buffer
	if err := packingSlipTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render packing slip: %w", err)
	}
	return buf.String(), nil
}

// PackingSlipPDF renders the slip and prints it to a letter-size PDF
func (p *PackingSlipPrinter) PackingSlipPDF(ctx context.Context, o *order.Order) ([]byte, error) {
	doc, err := p.PackingSlipHTML(o)
	if err != nil {
		return nil, err
	}
	result, err := p.renderer.Render(ctx, &RenderRequest{
		HTML:       doc,
		Title:      "Packing slip " + o.Number,
		PaperSize:  PaperSizeLetter,
		Margins:    DefaultMargins(),
		FooterHTML: `<div style="font-size:8px;width:100%;text-align:center;"><span class="pageNumber"></span> / <span class="totalPages"></span></div>`,
	})
	if err != nil {
		return nil, err
	}
	return result.PDFData, nil
}
