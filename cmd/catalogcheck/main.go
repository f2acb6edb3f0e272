// Command catalogcheck validates a catalog seed file with the same rules the
// storefront applies at startup and prints a per-category and per-source
// summary. Run it against a CATALOG_PATH override before deploying it.
//
//	go run ./cmd/catalogcheck -file catalog.json
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/patelpratyush/neomart-demo/internal/catalog"
	"github.com/patelpratyush/neomart-demo/internal/domain"
	"github.com/patelpratyush/neomart-demo/pkg/logger"
	"github.com/patelpratyush/neomart-demo/pkg/pagination"
)

func main() {
	file := flag.String("file", "", "catalog JSON file; empty checks the embedded seed")
	flag.Parse()

	log := logger.New("catalogcheck", "info")

	var (
		cat *catalog.Catalog
		err error
	)
	if *file == "" {
		cat, err = catalog.Default()
	} else {
		cat, err = catalog.Load(*file)
	}
	if err != nil {
		log.Error("catalog is invalid", slog.String("file", *file), slog.String("error", err.Error()))
		os.Exit(1)
	}

	all := pagination.Params{Page: 1, PerPage: cat.Len() + 1}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tPRODUCTS\tCORNERS")
	for _, c := range cat.Categories() {
		corners, _ := cat.Corners(c.Slug)
		fmt.Fprintf(w, "%s\t%d\t%d\n", c.Slug, cat.Products(catalog.Filter{Category: c.Slug}, all).TotalCount, len(corners))
	}
	fmt.Fprintln(w, "\nSOURCE\tPRODUCTS\t")
	for _, s := range domain.Sources() {
		fmt.Fprintf(w, "%s\t%d\t\n", s, cat.Products(catalog.Filter{Source: s}, all).TotalCount)
	}
	_ = w.Flush()

	log.Info("catalog is valid", slog.Int("products", cat.Len()))
}
