package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"sepet/models"
)

func TestReadCategoriesCSVPicksColumn(t *testing.T) {
	data := "English_names;Turkish_names\nMilk;Süt\nRice;Pirinç\nSausage;Sucuk\n"

	got, err := ReadCategoriesCSV("food.csv", strings.NewReader(data), "Turkish_names")
	if err != nil {
		t.Fatalf("ReadCategoriesCSV: %v", err)
	}
	want := []string{"Süt", "Pirinç", "Sucuk"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestReadCategoriesCSVSingleColumn(t *testing.T) {
	data := "names\nPeynir\nYumurta\n"

	got, err := ReadCategoriesCSV("food.csv", strings.NewReader(data), "Turkish_names")
	if err != nil {
		t.Fatalf("ReadCategoriesCSV: %v", err)
	}
	if len(got) != 2 || got[0] != "Peynir" {
		t.Errorf("got %v, want [Peynir Yumurta]", got)
	}
}

func TestReadCategoriesCSVMissingColumn(t *testing.T) {
	data := "a;b\n1;2\n"

	_, err := ReadCategoriesCSV("food.csv", strings.NewReader(data), "Turkish_names")
	if !errors.Is(err, models.ErrConfig) {
		t.Errorf("error = %v; want ErrConfig", err)
	}
}

func TestXLSXCategorySource(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	rows := [][]interface{}{
		{"English_names", "Turkish_names"},
		{"Bread", "Ekmek"},
		{"Pasta", "Makarna"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "food.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	src := NewCategorySource(path, "Turkish_names")
	if _, ok := src.(*XLSXCategorySource); !ok {
		t.Fatalf("NewCategorySource(%q) = %T; want *XLSXCategorySource", path, src)
	}

	got, err := src.LoadCategories(context.Background())
	if err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}
	want := []string{"Ekmek", "Makarna"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestCSVCategorySourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "food.csv")
	if err := os.WriteFile(path, []byte("Turkish_names\nZeytin\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewCategorySource(path, "Turkish_names").LoadCategories(context.Background())
	if err != nil {
		t.Fatalf("LoadCategories: %v", err)
	}
	if len(got) != 1 || got[0] != "Zeytin" {
		t.Errorf("got %v, want [Zeytin]", got)
	}
}
