package deck

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blanks(name string) BlankFactory[string] {
	return func() (string, error) {
		return name, nil
	}
}

func TestInsertAt(t *testing.T) {
	tests := []struct {
		name  string
		start []string
		index int
		want  []string
	}{
		{"front", []string{"a", "b"}, 1, []string{"x", "a", "b"}},
		{"middle", []string{"a", "b"}, 2, []string{"a", "x", "b"}},
		{"append", []string{"a", "b"}, 3, []string{"a", "b", "x"}},
		{"into empty", nil, 1, []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.start...)
			require.NoError(t, c.InsertAt(tt.index, "x"))
			if diff := cmp.Diff(tt.want, c.Items()); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInsertDeleteInverse(t *testing.T) {
	start := []string{"a", "b", "c", "d"}
	for i := 1; i <= len(start)+1; i++ {
		c := New(start...)
		require.NoError(t, c.InsertAt(i, "x"))
		assert.Equal(t, len(start)+1, c.Len())

		removed, err := c.DeleteAt(i)
		require.NoError(t, err)
		assert.Equal(t, "x", removed)
		if diff := cmp.Diff(start, c.Items()); diff != "" {
			t.Errorf("index %d: items mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	c := New("a", "b")

	assert.ErrorIs(t, c.InsertAt(0, "x"), ErrIndexOutOfRange)
	assert.ErrorIs(t, c.InsertAt(4, "x"), ErrIndexOutOfRange)

	_, err := c.DeleteAt(0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = c.DeleteAt(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = c.At(3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	assert.ErrorIs(t, c.Move(1, 3), ErrIndexOutOfRange)

	if diff := cmp.Diff([]string{"a", "b"}, c.Items()); diff != "" {
		t.Errorf("failed operations changed the collection:\n%s", diff)
	}
}

func TestEnsureLength(t *testing.T) {
	c := New("a", "b")
	added, err := c.EnsureLength(5, blanks("blank"))
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	if diff := cmp.Diff([]string{"a", "b", "blank", "blank", "blank"}, c.Items()); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	added, err = c.EnsureLength(2, blanks("never"))
	require.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 5, c.Len())
}

func TestEnsureLengthFactoryError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	c := New("a")
	added, err := c.EnsureLength(4, func() (string, error) {
		calls++
		if calls == 2 {
			return "", boom
		}
		return "blank", nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, added)
	assert.Equal(t, []string{"a", "blank"}, c.Items())
}

func TestMove(t *testing.T) {
	tests := []struct {
		from, to int
		want     []string
	}{
		{1, 3, []string{"b", "c", "a", "d"}},
		{4, 1, []string{"d", "a", "b", "c"}},
		{2, 2, []string{"a", "b", "c", "d"}},
		{3, 4, []string{"a", "b", "d", "c"}},
	}
	for _, tt := range tests {
		c := New("a", "b", "c", "d")
		require.NoError(t, c.Move(tt.from, tt.to))
		if diff := cmp.Diff(tt.want, c.Items()); diff != "" {
			t.Errorf("Move(%d, %d) mismatch (-want +got):\n%s", tt.from, tt.to, diff)
		}
	}
}

func TestItemsIsACopy(t *testing.T) {
	src := []string{"a", "b"}
	c := New(src...)
	src[0] = "z"
	items := c.Items()
	items[1] = "y"

	got, err := c.At(1)
	require.NoError(t, err)
	assert.Equal(t, "a", got)
	got, err = c.At(2)
	require.NoError(t, err)
	assert.Equal(t, "b", got)
}
