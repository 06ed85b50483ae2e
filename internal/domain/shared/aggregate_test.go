package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseAggregateRoot_StoredVersion(t *testing.T) {
	fresh := NewBaseAggregateRoot()
	assert.Equal(t, 1, fresh.Version)
	assert.Zero(t, fresh.StoredVersion())

	fresh.IncrementVersion()
	fresh.MarkPersisted()
	assert.Equal(t, 2, fresh.StoredVersion())

	loaded := RestoreAggregateRoot(NewBaseEntity(), 7)
	loaded.IncrementVersion()
	loaded.IncrementVersion()
	assert.Equal(t, 9, loaded.Version)
	assert.Equal(t, 7, loaded.StoredVersion())
}
