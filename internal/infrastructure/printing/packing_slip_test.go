package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fruitstand/backend/internal/domain/order"
	"github.com/fruitstand/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	req *RenderRequest
	err error
}

func (f *fakeRenderer) Render(_ context.Context, req *RenderRequest) (*RenderResult, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &RenderResult{PDFData: []byte("%PDF-1.4")}, nil
}

func (f *fakeRenderer) Close() error { return nil }

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	addr, err := valueobject.NewAddress("Ada Lovelace", "1 Orchard Way", "Portland", "97201", "us",
		valueobject.WithState("or"))
	require.NoError(t, err)
	return &order.Order{
		Number:          "FS-260101-ABC123",
		ShippingAddress: addr,
		PlacedAt:        time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Total:           valueobject.MustMoney("42.5", valueobject.USD),
		Notes:           "Leave at <door>",
		Items: []order.Item{
			{SKU: "APL-HC-1", ProductName: "Honeycrisp Apples", VariantLabel: "1 lb", Quantity: 2},
			{SKU: "PR-BOSC", ProductName: "Bosc Pears", Quantity: 3},
		},
	}
}

func TestPackingSlipHTML(t *testing.T) {
	p := NewPackingSlipPrinter(&fakeRenderer{}, "Fruit Stand")

	doc, err := p.PackingSlipHTML(testOrder(t))
	require.NoError(t, err)

	assert.Contains(t, doc, "Fruit Stand")
	assert.Contains(t, doc, "Order FS-260101-ABC123")
	assert.Contains(t, doc, "Jan 1, 2026")
	assert.Contains(t, doc, "Ada Lovelace")
	assert.Contains(t, doc, "Portland, OR 97201")
	assert.Contains(t, doc, "Honeycrisp Apples (1 lb)")
	assert.Contains(t, doc, "APL-HC-1")
	assert.Contains(t, doc, "5 unit(s)")
	assert.Contains(t, doc, "42.50")
	assert.Contains(t, doc, "Leave at &lt;door&gt;")
}

func TestPackingSlipPDF(t *testing.T) {
	r := &fakeRenderer{}
	p := NewPackingSlipPrinter(r, "Fruit Stand")

	pdf, err := p.PackingSlipPDF(context.Background(), testOrder(t))
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), pdf)

	require.NotNil(t, r.req)
	assert.Equal(t, PaperSizeLetter, r.req.PaperSize)
	assert.Equal(t, "Packing slip FS-260101-ABC123", r.req.Title)
	assert.NotEmpty(t, r.req.FooterHTML)
}

func TestPackingSlipPDF_RenderError(t *testing.T) {
	r := &fakeRenderer{err: NewRenderError(ErrCodeRenderTimeout, "timed out", nil)}
	p := NewPackingSlipPrinter(r, "Fruit Stand")

	_, err := p.PackingSlipPDF(context.Background(), testOrder(t))
	var renderErr *RenderError
	require.True(t, errors.As(err, &renderErr))
	assert.Equal(t, ErrCodeRenderTimeout, renderErr.Code)
}
