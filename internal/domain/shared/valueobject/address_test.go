package valueobject

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddress(t *testing.T) {
	tests := []struct {
		name        string
		fullName    string
		line1       string
		city        string
		postalCode  string
		country     string
		wantErr     bool
		wantField   string
		errContains string
	}{
		{name: "valid", fullName: "Ada Lovelace", line1: "1 Market St", city: "San Francisco", postalCode: "94105", country: "us"},
		{name: "missing name", line1: "1 Market St", city: "SF", postalCode: "94105", country: "US", wantErr: true, wantField: "name"},
		{name: "missing line1", fullName: "Ada", city: "SF", postalCode: "94105", country: "US", wantErr: true, wantField: "line1"},
		{name: "missing city", fullName: "Ada", line1: "1 Market St", postalCode: "94105", country: "US", wantErr: true, wantField: "city"},
		{name: "missing postal code", fullName: "Ada", line1: "1 Market St", city: "SF", country: "US", wantErr: true, wantField: "postal_code"},
		{name: "missing country", fullName: "Ada", line1: "1 Market St", city: "SF", postalCode: "94105", wantErr: true, wantField: "country"},
		{name: "bad country", fullName: "Ada", line1: "1 Market St", city: "SF", postalCode: "94105", country: "USA", wantErr: true, errContains: "two-letter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := NewAddress(tt.fullName, tt.line1, tt.city, tt.postalCode, tt.country, WithState("ca"))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "US", addr.Country())
				assert.Equal(t, "CA", addr.State())
				return
			}
			require.Error(t, err)
			if tt.wantField != "" {
				var mf *MissingFieldError
				require.True(t, errors.As(err, &mf))
				assert.Equal(t, tt.wantField, mf.Field)
			}
			if tt.errContains != "" {
				assert.Contains(t, err.Error(), tt.errContains)
			}
		})
	}
}

func TestAddress_Lines(t *testing.T) {
	addr, err := NewAddress("Ada Lovelace", "1 Market St", "San Francisco", "94105", "US",
		WithLine2("Suite 300"), WithState("CA"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Ada Lovelace", "1 Market St", "Suite 300", "San Francisco, CA 94105", "US"}, addr.Lines())
	assert.Equal(t, "Ada Lovelace, 1 Market St, Suite 300, San Francisco, CA 94105, US", addr.String())
	assert.Nil(t, Address{}.Lines())
}

func TestAddress_JSONAndScan(t *testing.T) {
	addr, err := NewAddress("Ada", "1 Market St", "SF", "94105", "US", WithPhone("+14155550100"))
	require.NoError(t, err)

	data, err := json.Marshal(addr)
	require.NoError(t, err)

	var decoded Address
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, addr.Equals(decoded))

	val, err := addr.Value()
	require.NoError(t, err)

	var scanned Address
	require.NoError(t, scanned.Scan(val))
	assert.Equal(t, "+14155550100", scanned.Phone())

	var empty Address
	require.NoError(t, empty.Scan(nil))
	assert.True(t, empty.IsEmpty())
}

func TestAddress_UnmarshalRejectsIncomplete(t *testing.T) {
	var a Address
	err := json.Unmarshal([]byte(`{"name":"Ada","line1":"1 Market St","city":"SF","country":"US"}`), &a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postal_code is required")
}
