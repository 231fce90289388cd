package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_NegativeZeroIsZero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	assert.Equal(t, Num(0).Key(), Num(negZero).Key())
	assert.True(t, Num(negZero).Equal(Num(0)))
	assert.Equal(t, "0", Num(negZero).String())

	left, err := New("a",
		NumColumn("k", []float64{negZero, 1}),
		TextColumn("eticheta", []string{"zero", "unu"}),
	)
	require.NoError(t, err)
	right, err := New("b",
		NumColumn("k", []float64{0}),
		TextColumn("oras", []string{"Cluj"}),
	)
	require.NoError(t, err)
	j, err := Join(left, right, "k", "k", JoinOptions{How: InnerJoin})
	require.NoError(t, err)
	assert.Equal(t, 1, j.Len())

	enc, err := FitOneHot(left, []string{"k"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"k_0", "k_1"}, enc.Columns())
}

func TestValue_KeysByKind(t *testing.T) {
	assert.Equal(t, "n:2.5", Num(2.5).Key())
	assert.Equal(t, "s:2.5", Text("2.5").Key())
	assert.Empty(t, Missing().Key())
	assert.False(t, Missing().Equal(Missing()))
	assert.True(t, Num(math.NaN()).IsMissing())
}
