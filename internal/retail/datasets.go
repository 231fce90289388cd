// Package retail runs the retail company analysis over sales, products,
// branches and customers.
package retail

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/tabloom-cli/internal/table"
)

// Input file names inside the data directory.
const (
	SalesFile     = "vanzari.csv"
	ProductsFile  = "produse.csv"
	BranchesFile  = "filiale.csv"
	CustomersFile = "clienti.csv"
)

// Column contracts checked at load time.
var (
	SalesColumns = []string{
		"id", "data", "luna", "an", "filiala_id", "produs_nume", "categorie", "client_id",
		"pret_unitar", "cantitate", "pret_total", "cost_total", "discount", "profit", "metoda_plata",
	}
	ProductColumns  = []string{"id", "nume", "categorie", "pret_achizitie", "pret_vanzare"}
	BranchColumns   = []string{"id", "nume", "oras"}
	CustomerColumns = []string{"id", "gen", "varsta", "oras", "client_fidel"}
)

// Datasets holds the four input tables.
type Datasets struct {
	Sales     *table.Table
	Products  *table.Table
	Branches  *table.Table
	Customers *table.Table
}

// All lists the tables with their display names in load order.
func (d *Datasets) All() []*table.Table {
	return []*table.Table{d.Sales, d.Products, d.Branches, d.Customers}
}

// LoadDatasets reads the four CSV files from dir and validates their columns.
func LoadDatasets(dir string, opt table.LoadOptions) (*Datasets, error) {
	kinds := map[string]table.Kind{
		"luna":         table.KindCategorical,
		"metoda_plata": table.KindCategorical,
		"client_fidel": table.KindCategorical,
	}
	if opt.Kinds == nil {
		opt.Kinds = kinds
	}
	load := func(file string, cols []string) (*table.Table, error) {
		t, err := table.LoadCSV(filepath.Join(dir, file), opt)
		if err != nil {
			return nil, err
		}
		if err := t.Require(cols...); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		return t, nil
	}
	var (
		d   Datasets
		err error
	)
	if d.Sales, err = load(SalesFile, SalesColumns); err != nil {
		return nil, err
	}
	if d.Products, err = load(ProductsFile, ProductColumns); err != nil {
		return nil, err
	}
	if d.Branches, err = load(BranchesFile, BranchColumns); err != nil {
		return nil, err
	}
	if d.Customers, err = load(CustomersFile, CustomerColumns); err != nil {
		return nil, err
	}
	return &d, nil
}
