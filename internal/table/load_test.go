package table

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadCSV_InfersKinds(t *testing.T) {
	p := writeFile(t, "vanzari.csv", "id,data,categorie,pret_total,client_id\n"+
		"1,2024-01-05,Electronice,1200.50,101\n"+
		"2,2024-01-06,Accesorii,80,\n"+
		"3,2024-02-01,Electronice,NA,103\n")
	tab, err := LoadCSV(p, LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "vanzari", tab.Name())
	assert.Equal(t, 3, tab.Len())
	assert.Equal(t, []string{"id", "data", "categorie", "pret_total", "client_id"}, tab.Columns())

	kinds := map[string]Kind{}
	for i := 0; i < tab.Width(); i++ {
		c := tab.ColumnAt(i)
		kinds[c.Name()] = c.Kind()
	}
	assert.Equal(t, KindIdentifier, kinds["id"])
	assert.Equal(t, KindDate, kinds["data"])
	assert.Equal(t, KindCategorical, kinds["categorie"])
	assert.Equal(t, KindNumeric, kinds["pret_total"])
	assert.Equal(t, KindIdentifier, kinds["client_id"])

	price, err := tab.Column("pret_total")
	require.NoError(t, err)
	assert.Equal(t, 1, price.MissingCount())
	f, ok := price.Value(0).Float()
	require.True(t, ok)
	assert.InDelta(t, 1200.5, f, 1e-9)

	client, _ := tab.Column("client_id")
	assert.True(t, client.Value(1).IsMissing())
}

func TestLoadCSV_FieldCountMismatch(t *testing.T) {
	p := writeFile(t, "bad.csv", "a,b,c\n1,2,3\n4,5\n")
	_, err := LoadCSV(p, LoadOptions{})
	require.Error(t, err)
	var pe *ParseError
	require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
	assert.Equal(t, 3, pe.Line)
}

func TestLoadCSV_FileNotFound(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "missing.csv"), LoadOptions{})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLoadCSV_LocaleNumbersAndTSV(t *testing.T) {
	p := writeFile(t, "prices.tsv", "produs\tpret\n"+
		"Laptop\t1.234,50\n"+
		"Mouse\t12,5%\n")
	tab, err := LoadFile(p, LoadOptions{})
	require.NoError(t, err)
	xs, err := tab.Floats("pret")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1234.5, 12.5}, xs, 1e-9)
}

func TestLoadCSV_MaxRowsAndForcedKind(t *testing.T) {
	p := writeFile(t, "codes.csv", "code,n\n001,1\n002,2\n003,3\n")
	tab, err := LoadCSV(p, LoadOptions{MaxRows: 2, Kinds: map[string]Kind{"code": KindCategorical}})
	require.NoError(t, err)
	assert.Equal(t, 2, tab.Len())
	code, _ := tab.Column("code")
	assert.Equal(t, "001", code.Value(0).String())
}

func TestLoadFile_Unsupported(t *testing.T) {
	_, err := LoadFile("notes.docx", LoadOptions{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestLoadXLSX_PadsShortRows(t *testing.T) {
	p := filepath.Join(t.TempDir(), "filiale.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{{"id", "nume", "oras"}, {1, "Centru", "Cluj"}, {2, "Nord"}}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	tab, err := LoadFile(p, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, tab.Len())
	oras, err := tab.Column("oras")
	require.NoError(t, err)
	assert.Equal(t, "Cluj", oras.Value(0).String())
	assert.True(t, oras.Value(1).IsMissing())
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	tab, err := New("t",
		TextColumn("produs", []string{"Laptop", "Mouse"}),
		NumColumn("profit", []float64{250.5, 0}),
	)
	require.NoError(t, err)
	tab, err = tab.WithColumn(NewColumn("nota", KindCategorical, []Value{Missing(), Text("x")}))
	require.NoError(t, err)

	p := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteCSV(p, tab))
	back, err := LoadCSV(p, LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, tab.Columns(), back.Columns())
	xs, err := back.Floats("profit")
	require.NoError(t, err)
	assert.Equal(t, []float64{250.5, 0}, xs)
	nota, _ := back.Column("nota")
	assert.True(t, nota.Value(0).IsMissing())
}
