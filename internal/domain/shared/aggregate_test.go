package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuditedAggregateRoot(t *testing.T) {
	t.Run("initializes audit fields with actor", func(t *testing.T) {
		actor := uuid.New()
		root := NewAuditedAggregateRoot(&actor)

		assert.NotEqual(t, uuid.Nil, root.ID)
		assert.Equal(t, 1, root.GetVersion())
		require.NotNil(t, root.CreatedBy)
		assert.Equal(t, actor, *root.CreatedBy)
		require.NotNil(t, root.UpdatedBy)
		assert.Equal(t, actor, *root.UpdatedBy)
		assert.False(t, root.IsDeleted)
		assert.Nil(t, root.DeletedAt)
	})

	t.Run("allows a nil actor for system writes", func(t *testing.T) {
		root := NewAuditedAggregateRoot(nil)

		assert.Nil(t, root.CreatedBy)
		assert.Nil(t, root.UpdatedBy)
	})
}

func TestAuditedAggregateRoot_Touch(t *testing.T) {
	creator := uuid.New()
	root := NewAuditedAggregateRoot(&creator)
	before := root.UpdatedAt

	editor := uuid.New()
	time.Sleep(time.Millisecond)
	root.Touch(&editor)

	assert.Equal(t, creator, *root.CreatedBy)
	assert.Equal(t, editor, *root.UpdatedBy)
	assert.True(t, root.UpdatedAt.After(before))
}

func TestAuditedAggregateRoot_SoftDelete(t *testing.T) {
	t.Run("marks deleted and stamps deletion time", func(t *testing.T) {
		actor := uuid.New()
		root := NewAuditedAggregateRoot(nil)

		changed := root.SoftDelete(&actor)

		assert.True(t, changed)
		assert.True(t, root.IsDeleted)
		require.NotNil(t, root.DeletedAt)
		assert.Equal(t, actor, *root.UpdatedBy)
	})

	t.Run("is idempotent", func(t *testing.T) {
		root := NewAuditedAggregateRoot(nil)

		require.True(t, root.SoftDelete(nil))
		firstDeletedAt := *root.DeletedAt

		assert.False(t, root.SoftDelete(nil))
		assert.Equal(t, firstDeletedAt, *root.DeletedAt)
	})
}

func TestAuditedAggregateRoot_Restore(t *testing.T) {
	t.Run("clears deletion state", func(t *testing.T) {
		root := NewAuditedAggregateRoot(nil)
		require.True(t, root.SoftDelete(nil))

		actor := uuid.New()
		changed := root.Restore(&actor)

		assert.True(t, changed)
		assert.False(t, root.IsDeleted)
		assert.Nil(t, root.DeletedAt)
		assert.Equal(t, actor, *root.UpdatedBy)
	})

	t.Run("is a no-op on live aggregates", func(t *testing.T) {
		root := NewAuditedAggregateRoot(nil)
		assert.False(t, root.Restore(nil))
	})

	t.Run("delete and restore round trip", func(t *testing.T) {
		root := NewAuditedAggregateRoot(nil)

		require.True(t, root.SoftDelete(nil))
		require.True(t, root.Restore(nil))
		require.True(t, root.SoftDelete(nil))

		assert.True(t, root.IsDeleted)
		assert.NotNil(t, root.DeletedAt)
	})
}

func TestBaseAggregateRoot_Version(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Equal(t, 1, root.GetVersion())

	root.IncrementVersion()
	root.IncrementVersion()
	assert.Equal(t, 3, root.GetVersion())
}

func TestBaseAggregateRoot_DomainEvents(t *testing.T) {
	root := NewBaseAggregateRoot()
	assert.Empty(t, root.GetDomainEvents())

	event := NewBaseDomainEvent("test.event", "Test", root.ID, nil)
	root.AddDomainEvent(&event)

	require.Len(t, root.GetDomainEvents(), 1)

	root.ClearDomainEvents()
	assert.Empty(t, root.GetDomainEvents())
}
