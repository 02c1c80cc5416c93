// Package shops wires the compiled-in shop plugins into a scraper.Table.
package shops

import (
	"sepet/scraper"
	"sepet/scraper/a101"
	"sepet/scraper/koop"
	"sepet/scraper/migros"
	"sepet/scraper/onurmarket"
)

// Register adds every built-in plugin to t.
func Register(t *scraper.Table) error {
	plugins := []struct {
		module, class string
		ctor          scraper.Constructor
	}{
		{migros.Module, migros.Class, migros.New},
		{a101.Module, a101.Class, a101.New},
		{koop.Module, koop.Class, koop.New},
		{onurmarket.Module, onurmarket.Class, onurmarket.New},
	}
	for _, p := range plugins {
		if err := t.Register(p.module, p.class, p.ctor); err != nil {
			return err
		}
	}
	return nil
}

// DefaultTable returns a table holding every built-in plugin.
func DefaultTable() *scraper.Table {
	t := scraper.NewTable()
	if err := Register(t); err != nil {
		panic(err)
	}
	return t
}
