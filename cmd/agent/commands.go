package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Lelo88/rental-sync-golang/internal/exports"
	"github.com/Lelo88/rental-sync-golang/internal/localstore"
)

// runCommand despacha un comando administrativo contra el store local.
// Los exports escriben en out; los imports leen del archivo dado y
// reportan el resultado en out. Nada de esto toca el backend compartido.
func runCommand(ctx context.Context, store *localstore.Store, args []string, out io.Writer) error {
	switch args[0] {
	case "export-csv":
		return exportCSV(ctx, store, out)
	case "import-csv":
		if len(args) < 2 {
			return fmt.Errorf("import-csv: missing file argument")
		}
		return importCSV(ctx, store, args[1], out)
	case "export-json":
		return exportJSON(ctx, store, out)
	case "import-json":
		if len(args) < 2 {
			return fmt.Errorf("import-json: missing file argument")
		}
		return importJSON(ctx, store, args[1], out)
	}
	return fmt.Errorf("unknown command: %q", args[0])
}

func exportCSV(ctx context.Context, store *localstore.Store, out io.Writer) error {
	articles, err := store.ListArticles(ctx)
	if err != nil {
		return err
	}
	text, err := exports.ArticlesCSV(articles)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

// importCSV agrega los artículos nuevos del CSV. Las colisiones de id no
// pisan lo existente: se reportan y el resto entra igual.
func importCSV(ctx context.Context, store *localstore.Store, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	incoming, err := exports.ParseArticlesCSV(string(data))
	if err != nil {
		return err
	}
	existing, err := store.ListArticles(ctx)
	if err != nil {
		return err
	}
	added, collisions := exports.MergeArticles(existing, incoming)
	for _, article := range added {
		if err := store.CreateArticle(ctx, article); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "imported %d article(s), skipped %d collision(s)\n", len(added), len(collisions))
	for _, id := range collisions {
		fmt.Fprintf(out, "collision: %s\n", id)
	}
	return nil
}

func exportJSON(ctx context.Context, store *localstore.Store, out io.Writer) error {
	articles, err := store.ListArticles(ctx)
	if err != nil {
		return err
	}
	reservations, err := store.ListReservations(ctx)
	if err != nil {
		return err
	}
	items, err := store.ListReservationItems(ctx)
	if err != nil {
		return err
	}
	data, err := exports.JSONDump(exports.DefaultSettings(), articles, reservations, items)
	if err != nil {
		return err
	}
	_, err = out.Write(append(data, '\n'))
	return err
}

// importJSON restaura un volcado completo: reemplaza el dataset local
// entero o no toca nada.
func importJSON(ctx context.Context, store *localstore.Store, path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dump, err := exports.ParseJSONDump(data)
	if err != nil {
		return err
	}
	if err := store.ReplaceAll(ctx, dump.Articles, dump.Reservations, dump.ReservationItems); err != nil {
		return err
	}
	fmt.Fprintf(out, "restored %d article(s), %d reservation(s), %d item(s)\n",
		len(dump.Articles), len(dump.Reservations), len(dump.ReservationItems))
	return nil
}
