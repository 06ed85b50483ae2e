package catalog

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/fruitstand/backend/internal/domain/shared"
	csvimport "github.com/fruitstand/backend/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ImportConfig bounds bulk product imports
type ImportConfig struct {
	MaxBytes  int64
	MaxRows   int
	MaxErrors int
}

// DefaultImportConfig returns the import limits used when none are set
func DefaultImportConfig() ImportConfig {
	return ImportConfig{MaxBytes: 4 << 20, MaxRows: 5000, MaxErrors: 200}
}

// SetImportConfig overrides import limits
func (s *ProductService) SetImportConfig(cfg ImportConfig) {
	s.imports = cfg
}

// ImportRequest controls a bulk product import
type ImportRequest struct {
	DryRun  bool `form:"dry_run"`
	Publish bool `form:"publish"`
}

// ImportedProduct summarizes one product built from the file. ID is nil on
// a dry run.
type ImportedProduct struct {
	ID       *uuid.UUID `json:"id,omitempty"`
	Slug     string     `json:"slug"`
	Name     string     `json:"name"`
	Variants int        `json:"variants"`
	Row      int        `json:"row"`
	Status   string     `json:"status"`
}

// ImportResult reports what a bulk import did or, on a dry run, would do
type ImportResult struct {
	DryRun      bool                 `json:"dry_run"`
	TotalRows   int                  `json:"total_rows"`
	ErrorRows   int                  `json:"error_rows"`
	Products    []ImportedProduct    `json:"products"`
	Skipped     []string             `json:"skipped"`
	Errors      []csvimport.RowError `json:"errors"`
	TotalErrors int                  `json:"total_errors"`
	Truncated   bool                 `json:"truncated"`
}

// Import columns. Rows sharing a slug become one product with a variant per
// row; product-level columns are taken from the first row of the slug.
const (
	colSlug           = "slug"
	colName           = "name"
	colDescription    = "description"
	colCategory       = "category"
	colPrice          = "price"
	colCompareAtPrice = "compare_at_price"
	colSKU            = "sku"
	colSize           = "size"
	colColor          = "color"
	colStock          = "stock"
	colPriceOverride  = "price_override"
)

var importSlugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func productImportSchema() *csvimport.Schema {
	return csvimport.NewSchema(
		csvimport.Column(colSlug).Required().MaxLen(120).Match(importSlugPattern, "lowercase words joined by single hyphens").Build(),
		csvimport.Column(colName).MaxLen(200).Build(),
		csvimport.Column(colDescription).MaxLen(5000).Build(),
		csvimport.Column(colCategory).MaxLen(60).Build(),
		csvimport.Column(colPrice).Decimal().Min(decimal.Zero).Build(),
		csvimport.Column(colCompareAtPrice).Decimal().Min(decimal.Zero).Build(),
		csvimport.Column(colSKU).Required().MaxLen(64).Unique().Build(),
		csvimport.Column(colSize).MaxLen(40).Build(),
		csvimport.Column(colColor).MaxLen(40).Build(),
		csvimport.Column(colStock).Int().Min(decimal.Zero).Build(),
		csvimport.Column(colPriceOverride).Decimal().Min(decimal.Zero).Build(),
	).Expect(colName, colPrice)
}

type importGroup struct {
	slug string
	rows []*csvimport.Row
}

func (g *importGroup) first() *csvimport.Row { return g.rows[0] }

// ImportProducts creates draft products from a CSV export. A product is
// created only when all of its rows are valid; other products in the same
// file are unaffected. Nothing is written on a dry run.
func (s *ProductService) ImportProducts(ctx context.Context, src io.Reader, req ImportRequest) (*ImportResult, error) {
	batch, err := csvimport.Load(ctx, src, productImportSchema(), s.imports.MaxErrors,
		csvimport.WithMaxBytes(s.imports.MaxBytes),
		csvimport.WithMaxRows(s.imports.MaxRows),
	)
	if err != nil {
		return nil, importFileError(err)
	}

	result := &ImportResult{DryRun: req.DryRun, TotalRows: batch.TotalRows, Products: []ImportedProduct{}, Skipped: []string{}}
	for _, group := range groupBySlug(batch.Rows) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		requireProductColumns(group, batch.Errors)
		if err := s.checkExisting(ctx, group, batch.Errors); err != nil {
			return nil, err
		}
		if groupFailed(group, batch.Errors) {
			result.Skipped = append(result.Skipped, group.slug)
			continue
		}

		create := toCreateRequest(group)
		if req.DryRun {
			result.Products = append(result.Products, ImportedProduct{
				Slug: create.Slug, Name: create.Name, Variants: len(create.Variants), Row: group.first().Line, Status: "draft",
			})
			continue
		}

		product, err := s.importOne(ctx, group, create, req.Publish, batch.Errors)
		if err != nil {
			return nil, err
		}
		if product == nil {
			result.Skipped = append(result.Skipped, group.slug)
			continue
		}
		result.Products = append(result.Products, *product)
	}

	result.ErrorRows = batch.Errors.FailedRows()
	result.Errors = batch.Errors.Items()
	result.TotalErrors = batch.Errors.Total()
	result.Truncated = batch.Errors.Truncated()

	s.logger.Info("Product import finished",
		zap.Bool("dry_run", req.DryRun),
		zap.Int("rows", result.TotalRows),
		zap.Int("products", len(result.Products)),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("errors", batch.Errors.String()),
	)
	return result, nil
}

// requireProductColumns checks the product-level cells of the first row.
// Later rows of the same slug may leave them blank.
func requireProductColumns(group *importGroup, errs *csvimport.Collector) {
	first := group.first()
	for _, col := range []string{colName, colPrice} {
		if first.Get(col) == "" {
			errs.Add(csvimport.RowError{Row: first.Line, Column: col, Code: csvimport.CodeRequired,
				Message: "value is required on the first row of a product"})
		}
	}
}

// checkExisting flags slugs and SKUs that are already in the catalog
func (s *ProductService) checkExisting(ctx context.Context, group *importGroup, errs *csvimport.Collector) error {
	first := group.first()
	if !errs.Failed(first.Line) {
		exists, err := s.productRepo.ExistsBySlug(ctx, group.slug)
		if err != nil {
			return err
		}
		if exists {
			errs.Add(csvimport.RowError{Row: first.Line, Column: colSlug, Code: csvimport.CodeAlreadyExists,
				Message: "a product with this slug already exists", Value: group.slug})
		}
	}
	for _, row := range group.rows {
		if errs.Failed(row.Line) {
			continue
		}
		sku := row.Get(colSKU)
		exists, err := s.productRepo.ExistsBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if exists {
			errs.Add(csvimport.RowError{Row: row.Line, Column: colSKU, Code: csvimport.CodeAlreadyExists,
				Message: "a variant with this SKU already exists", Value: sku})
		}
	}
	return nil
}

// importOne creates one product. Domain rejections are recorded against the
// group's first row and reported as a nil product.
func (s *ProductService) importOne(ctx context.Context, group *importGroup, create CreateProductRequest, publish bool, errs *csvimport.Collector) (*ImportedProduct, error) {
	reject := func(err error) (*ImportedProduct, error) {
		var domainErr *shared.DomainError
		if !errors.As(err, &domainErr) {
			return nil, err
		}
		errs.Add(csvimport.RowError{Row: group.first().Line, Code: csvimport.CodeRejected, Message: domainErr.Message})
		return nil, nil
	}

	product, err := s.Create(ctx, create)
	if err != nil {
		return reject(err)
	}
	if publish {
		published, err := s.Publish(ctx, product.ID)
		if err != nil {
			// the draft stays; only publishing failed
			if _, rerr := reject(err); rerr != nil {
				return nil, rerr
			}
		} else {
			product = published
		}
	}

	return &ImportedProduct{
		ID:       &product.ID,
		Slug:     product.Slug,
		Name:     product.Name,
		Variants: len(product.Variants),
		Row:      group.first().Line,
		Status:   product.Status,
	}, nil
}

func groupBySlug(rows []*csvimport.Row) []*importGroup {
	var groups []*importGroup
	bySlug := make(map[string]*importGroup)
	for _, row := range rows {
		slug := strings.ToLower(row.Get(colSlug))
		if slug == "" {
			continue
		}
		g, ok := bySlug[slug]
		if !ok {
			g = &importGroup{slug: slug}
			bySlug[slug] = g
			groups = append(groups, g)
		}
		g.rows = append(g.rows, row)
	}
	return groups
}

func groupFailed(group *importGroup, errs *csvimport.Collector) bool {
	for _, row := range group.rows {
		if errs.Failed(row.Line) {
			return true
		}
	}
	return false
}

// toCreateRequest assumes every row of the group passed the schema
func toCreateRequest(group *importGroup) CreateProductRequest {
	first := group.first()
	req := CreateProductRequest{
		Name:        first.Get(colName),
		Slug:        group.slug,
		Description: first.Get(colDescription),
		Category:    first.Get(colCategory),
		Price:       decimal.RequireFromString(first.Get(colPrice)),
	}
	if v := first.Get(colCompareAtPrice); v != "" {
		d := decimal.RequireFromString(v)
		req.CompareAtPrice = &d
	}
	for _, row := range group.rows {
		variant := VariantRequest{
			SKU:   row.Get(colSKU),
			Size:  row.Get(colSize),
			Color: row.Get(colColor),
		}
		if v := row.Get(colStock); v != "" {
			variant.Stock = int(decimal.RequireFromString(v).IntPart())
		}
		if v := row.Get(colPriceOverride); v != "" {
			d := decimal.RequireFromString(v)
			variant.PriceOverride = &d
		}
		req.Variants = append(req.Variants, variant)
	}
	return req
}

// importFileError turns file-level problems into client errors
func importFileError(err error) error {
	for _, known := range []error{
		csvimport.ErrEmptyFile, csvimport.ErrMissingHeader, csvimport.ErrNoDataRows,
		csvimport.ErrTooManyRows, csvimport.ErrFileTooLarge, csvimport.ErrMissingColumns,
	} {
		if errors.Is(err, known) {
			return shared.NewDomainError("INVALID_INPUT", err.Error())
		}
	}
	return err
}
