package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord_SortsKeys(t *testing.T) {
	rec := NewRecord(map[string]string{"y": "2", "x": "1", "querytype": "A"}, ",")

	assert.Equal(t, []string{"querytype", "x", "y"}, rec.Keys())
	assert.Equal(t, 3, rec.Len())
	assert.Equal(t, ",", rec.Delimiter())
}

func TestNewRecord_DefaultDelimiter(t *testing.T) {
	rec := NewRecord(map[string]string{"a": "1"}, "")
	assert.Equal(t, DefaultDelimiter, rec.Delimiter())
}

func TestNewRecord_CopiesInput(t *testing.T) {
	fields := map[string]string{"a": "1"}
	rec := NewRecord(fields, ",")
	fields["a"] = "changed"
	fields["b"] = "new"

	v, ok := rec.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 1, rec.Len())
}

func TestRecord_Formatting(t *testing.T) {
	rec := NewRecord(map[string]string{"x": "1", "y": "2"}, ",")

	assert.Equal(t, "x,y", rec.Header())
	assert.Equal(t, "1,2\n", rec.HeadlessText())
	assert.Equal(t, "x,y\n1,2\n", rec.Text())
}

func TestRecord_FormattingIsDeterministic(t *testing.T) {
	fields := map[string]string{"c": "3", "a": "1", "b": "2", "d": "4", "e": "5"}
	first := NewRecord(fields, ";").Text()
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, NewRecord(fields, ";").Text())
	}
	assert.Equal(t, "a;b;c;d;e\n1;2;3;4;5\n", first)
}

func TestRecord_EmbeddedDelimiterNotEscaped(t *testing.T) {
	rec := NewRecord(map[string]string{"a": "1,5", "b": "2"}, ",")
	assert.Equal(t, "1,5,2\n", rec.HeadlessText())
}

func TestRecord_Category(t *testing.T) {
	rec := NewRecord(map[string]string{"querytype": "liveboard", "x": "1"}, ";")

	_, err := rec.Category()
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = rec.WithCategoryValue("").Category()
	assert.ErrorIs(t, err, ErrMissingField)

	cat, err := rec.WithCategoryValue("connections").Category()
	require.NoError(t, err)
	assert.Equal(t, "connections", cat)
}

func TestRecord_KeysReturnsCopy(t *testing.T) {
	rec := NewRecord(map[string]string{"a": "1", "b": "2"}, ",")
	keys := rec.Keys()
	keys[0] = "zzz"

	assert.Equal(t, "a,b", rec.Header())
}
