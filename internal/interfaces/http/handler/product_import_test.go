package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	catalogapp "github.com/fruitstand/backend/internal/application/catalog"
	"github.com/fruitstand/backend/internal/domain/shared"
	"github.com/fruitstand/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const importCSV = "slug,name,price,sku\npears,Pears,2.00,PEAR-1\n"

func setupImportRouter(svc *MockProductService) http.Handler {
	router := setupTestRouter()
	router.POST("/admin/products/import", NewProductHandler(svc).Import)
	return router
}

func TestProductHandler_Import_CSVBody(t *testing.T) {
	svc := new(MockProductService)
	id := uuid.New()
	svc.On("ImportProducts", mock.Anything, importCSV, catalogapp.ImportRequest{Publish: true}).
		Return(&catalogapp.ImportResult{
			TotalRows: 1,
			Products:  []catalogapp.ImportedProduct{{ID: &id, Slug: "pears", Variants: 1, Row: 2, Status: "active"}},
			Skipped:   []string{},
		}, nil)

	w := doJSON(setupImportRouter(svc), http.MethodPost, "/admin/products/import?publish=true", importCSV,
		"Content-Type", "text/csv; charset=utf-8")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"slug":"pears"`)
	svc.AssertExpectations(t)
}

func TestProductHandler_Import_Multipart(t *testing.T) {
	svc := new(MockProductService)
	svc.On("ImportProducts", mock.Anything, importCSV, catalogapp.ImportRequest{DryRun: true}).
		Return(&catalogapp.ImportResult{DryRun: true, TotalRows: 1, Products: []catalogapp.ImportedProduct{{Slug: "pears"}}}, nil)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(importCSV))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/products/import?dry_run=true", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	setupImportRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"dry_run":true`)
	svc.AssertExpectations(t)
}

func TestProductHandler_Import_MissingFileField(t *testing.T) {
	svc := new(MockProductService)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("note", "no file here"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/products/import", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	setupImportRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeBadRequest, errCode(t, w))
	svc.AssertNotCalled(t, "ImportProducts", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductHandler_Import_UnsupportedContentType(t *testing.T) {
	svc := new(MockProductService)

	w := doJSON(setupImportRouter(svc), http.MethodPost, "/admin/products/import", map[string]string{"slug": "pears"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ImportProducts", mock.Anything, mock.Anything, mock.Anything)
}

func TestProductHandler_Import_FileRejected(t *testing.T) {
	svc := new(MockProductService)
	svc.On("ImportProducts", mock.Anything, "", catalogapp.ImportRequest{}).
		Return(nil, shared.NewDomainError("INVALID_INPUT", "CSV file is empty"))

	w := doJSON(setupImportRouter(svc), http.MethodPost, "/admin/products/import", "", "Content-Type", "text/csv")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, errCode(t, w))
}

func TestProductHandler_Import_NothingCreated(t *testing.T) {
	svc := new(MockProductService)
	svc.On("ImportProducts", mock.Anything, importCSV, catalogapp.ImportRequest{}).
		Return(&catalogapp.ImportResult{TotalRows: 1, Products: []catalogapp.ImportedProduct{}, Skipped: []string{"pears"}}, nil)

	w := doJSON(setupImportRouter(svc), http.MethodPost, "/admin/products/import", importCSV, "Content-Type", "text/csv")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"skipped":["pears"]`)
}
