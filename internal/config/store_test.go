package config_test

import (
	"testing"

	"github.com/leighmacdonald/rgs/internal/config"
	"github.com/leighmacdonald/rgs/internal/model"
	"github.com/stretchr/testify/require"
)

func TestStoreStrings(t *testing.T) {
	t.Parallel()

	store := config.NewStore()
	store.Set("k", config.StringsValue("a", "b"))

	values, errValues := store.Strings("k")
	require.NoError(t, errValues)
	require.Equal(t, []string{"a", "b"}, values)

	_, errBool := store.Bool("k")
	require.ErrorIs(t, errBool, model.ErrSettingTypeMismatch)

	values[0] = "changed"
	again, _ := store.Strings("k")
	require.Equal(t, []string{"a", "b"}, again)
}

func TestStoreMissingKey(t *testing.T) {
	t.Parallel()

	store := config.NewStore()

	_, errString := store.String("qstat_path")
	require.ErrorIs(t, errString, model.ErrInvalidSettingKey)
	require.Contains(t, errString.Error(), "qstat_path")

	_, errInt := store.Int("missing")
	require.ErrorIs(t, errInt, model.ErrInvalidSettingKey)

	_, errStructured := store.Structured("missing")
	require.ErrorIs(t, errStructured, model.ErrInvalidSettingKey)
}

func TestStoreTypedAccessors(t *testing.T) {
	t.Parallel()

	store := config.NewStore()
	store.Set("str", config.StringValue("value"))
	store.Set("bool", config.BoolValue(true))
	store.Set("int", config.IntValue(42))
	store.Set("obj", config.StructuredValue(map[string]any{"nested": []any{"x"}}))

	str, errStr := store.String("str")
	require.NoError(t, errStr)
	require.Equal(t, "value", str)

	boolean, errBool := store.Bool("bool")
	require.NoError(t, errBool)
	require.True(t, boolean)

	integer, errInt := store.Int("int")
	require.NoError(t, errInt)
	require.Equal(t, int64(42), integer)

	_, errMismatch := store.String("int")
	require.ErrorIs(t, errMismatch, model.ErrSettingTypeMismatch)

	_, errNotList := store.Strings("str")
	require.ErrorIs(t, errNotList, model.ErrSettingTypeMismatch)

	obj, errObj := store.Structured("obj")
	require.NoError(t, errObj)

	objMap, ok := obj.(map[string]any)
	require.True(t, ok)

	objMap["nested"] = "mutated"

	fresh, _ := store.Structured("obj")
	require.Equal(t, map[string]any{"nested": []any{"x"}}, fresh)
}

func TestStoreHeterogeneousList(t *testing.T) {
	t.Parallel()

	store := config.NewStore()
	require.NoError(t, store.SetAny("master_server_uri", []any{"master.example.com", 27950}))

	_, errStrings := store.Strings("master_server_uri")
	require.ErrorIs(t, errStrings, model.ErrSettingTypeMismatch)
	require.Contains(t, errStrings.Error(), "master_server_uri")

	value, errGet := store.Get("master_server_uri")
	require.NoError(t, errGet)

	list, isList := value.AsList()
	require.True(t, isList)
	require.Len(t, list, 2)
	require.Equal(t, config.KindInt, list[1].Kind())
}

func TestStoreSetAny(t *testing.T) {
	t.Parallel()

	store := config.NewStore()
	require.NoError(t, store.SetAny("port", float64(27960)))
	require.NoError(t, store.SetAny("ratio", 0.5))
	require.NoError(t, store.SetAny("names", []string{"a"}))
	require.Error(t, store.SetAny("nil", nil))

	port, errPort := store.Int("port")
	require.NoError(t, errPort)
	require.Equal(t, int64(27960), port)

	ratio, errRatio := store.Structured("ratio")
	require.NoError(t, errRatio)
	require.InDelta(t, 0.5, ratio, 0.0001)

	require.Equal(t, []string{"names", "port", "ratio"}, store.Keys())
	require.False(t, store.Has("nil"))
}

func TestStoreClone(t *testing.T) {
	t.Parallel()

	store := config.NewStore()
	store.Set("a", config.StringValue("1"))

	snapshot := store.Clone()

	store.Set("a", config.StringValue("2"))
	store.Set("b", config.BoolValue(false))
	store.Delete("a")

	value, errValue := snapshot.String("a")
	require.NoError(t, errValue)
	require.Equal(t, "1", value)
	require.Equal(t, 1, snapshot.Len())
	require.Equal(t, 1, store.Len())
}
