package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_LeftKeepsEveryLeftRow(t *testing.T) {
	sales, err := New("vanzari",
		NumColumn("id", []float64{1, 2, 3, 4}),
		NewColumn("filiala_id", KindIdentifier, []Value{Num(10), Num(20), Num(99), Missing()}),
		NumColumn("pret_total", []float64{100, 200, 300, 400}),
	)
	require.NoError(t, err)
	branches, err := New("filiale",
		NumColumn("id", []float64{10, 20}),
		TextColumn("oras", []string{"Cluj", "Iasi"}),
	)
	require.NoError(t, err)

	out, err := Join(sales, branches, "filiala_id", "id", JoinOptions{How: LeftJoin})
	require.NoError(t, err)
	assert.Equal(t, sales.Len(), out.Len())
	assert.Equal(t, []string{"id_x", "filiala_id", "pret_total", "id_y", "oras"}, out.Columns())

	oras, _ := out.Column("oras")
	assert.Equal(t, "Cluj", oras.Value(0).String())
	assert.Equal(t, "Iasi", oras.Value(1).String())
	assert.True(t, oras.Value(2).IsMissing())
	assert.True(t, oras.Value(3).IsMissing(), "missing key never matches")
}

func TestJoin_InnerAndSharedKey(t *testing.T) {
	left, _ := New("l", NumColumn("k", []float64{1, 2, 3}), TextColumn("a", []string{"x", "y", "z"}))
	right, _ := New("r", NumColumn("k", []float64{3, 1, 1}), TextColumn("a", []string{"p", "q", "s"}))

	out, err := Join(left, right, "k", "k", JoinOptions{How: InnerJoin, Suffixes: [2]string{"_l", "_r"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"k", "a_l", "a_r"}, out.Columns())
	ks, _ := out.Floats("k")
	assert.Equal(t, []float64{1, 1, 3}, ks)
	ar, _ := out.Column("a_r")
	assert.Equal(t, []string{"q", "s", "p"}, ar.Strings())
}

func TestJoin_UnknownKey(t *testing.T) {
	left, _ := New("l", NumColumn("k", []float64{1}))
	right, _ := New("r", NumColumn("k", []float64{1}))
	_, err := Join(left, right, "nope", "k", JoinOptions{})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}
