package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLayoutLenient(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, l Layout)
	}{
		{
			name:  "numeric name and string width",
			input: `{"id":"b","name":123,"width":"40","depth":30,"height":" 5.5 "}`,
			check: func(t *testing.T, l Layout) {
				assert.Equal(t, "b", l.ID)
				assert.Equal(t, "123", l.Name)
				assert.Equal(t, 40.0, l.Width)
				assert.Equal(t, 30.0, l.Depth)
				assert.Equal(t, 5.5, l.Height)
			},
		},
		{
			name:  "unusable values fall back to zero",
			input: `{"id":7,"name":null,"width":"wide","gridSize":true,"objects":"none","createdAt":"soon"}`,
			check: func(t *testing.T, l Layout) {
				assert.Equal(t, "7", l.ID)
				assert.Empty(t, l.Name)
				assert.Zero(t, l.Width)
				assert.Zero(t, l.GridSize)
				assert.NotNil(t, l.Objects)
				assert.Empty(t, l.Objects)
				assert.NotNil(t, l.Paths)
				assert.True(t, l.CreatedAt.IsZero())
			},
		},
		{
			name:  "nested entries keep key order and drop non-objects",
			input: `{"id":"c","paths":[{"id":"p1","points":[1,2]},3,{"z":1,"a":2}],"preview":{"w":1.50}}`,
			check: func(t *testing.T, l Layout) {
				require.Len(t, l.Paths, 2)
				assert.Equal(t, "p1", l.Paths[0].ID())
				assert.Equal(t, []string{"z", "a"}, l.Paths[1].Keys())
				assert.Equal(t, map[string]any{"w": json.Number("1.50")}, l.Preview)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := DecodeLayoutLenient([]byte(tt.input))
			require.NoError(t, err)
			tt.check(t, l)
		})
	}
}

func TestDecodeLayoutLenient_RejectsNonObjects(t *testing.T) {
	for _, input := range []string{`42`, `"x"`, `[1]`, ``, `{broken`} {
		_, err := DecodeLayoutLenient([]byte(input))
		assert.Error(t, err, input)
	}
}
