package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringList(t *testing.T) {
	t.Run("scans driver bytes and strings", func(t *testing.T) {
		var fromBytes StringList
		require.NoError(t, fromBytes.Scan([]byte(`["read","update"]`)))
		assert.Equal(t, StringList{"read", "update"}, fromBytes)

		var fromString StringList
		require.NoError(t, fromString.Scan(`["manage"]`))
		assert.Equal(t, StringList{"manage"}, fromString)

		var fromNil StringList
		require.NoError(t, fromNil.Scan(nil))
		assert.Nil(t, fromNil)
	})

	t.Run("empty list stores as JSON array, not NULL", func(t *testing.T) {
		value, err := StringList{}.Value()
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(value.([]byte)))

		value, err = StringList(nil).Value()
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(value.([]byte)))
	})

	t.Run("rejects non-JSON driver values", func(t *testing.T) {
		var list StringList
		assert.Error(t, list.Scan(42))
	})

	t.Run("contains", func(t *testing.T) {
		list := StringList{"read", "update"}
		assert.True(t, list.Contains("read"))
		assert.False(t, list.Contains("manage"))
		assert.False(t, StringList(nil).Contains("read"))
	})
}

func TestPermissionMap(t *testing.T) {
	t.Run("round-trips the public slot", func(t *testing.T) {
		value, err := PermissionMap{"other": {"read"}}.Value()
		require.NoError(t, err)

		var scanned PermissionMap
		require.NoError(t, scanned.Scan(value))
		assert.Equal(t, StringList{"read"}, scanned["other"])
	})

	t.Run("absent class grants nothing", func(t *testing.T) {
		var scanned PermissionMap
		require.NoError(t, scanned.Scan([]byte(`{}`)))
		assert.False(t, scanned["other"].Contains("read"))
	})

	t.Run("nil map stores as empty object", func(t *testing.T) {
		value, err := PermissionMap(nil).Value()
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(value.([]byte)))
	})
}
