// Package exports genera y lee los volcados administrativos (CSV de
// artículos, dump JSON completo). Recibe la configuración como objeto
// explícito: el núcleo de disponibilidad y el guard no dependen de nada
// de acá.
package exports

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lelo88/rental-sync-golang/internal/rental"
)

// Settings es la configuración de presentación que antes vivía como
// estado ambiental persistido; ahora viaja explícita a quien la necesite.
type Settings struct {
	Currency   string   `json:"currency"`
	Locale     string   `json:"locale"`
	Categories []string `json:"categories"`
}

// DefaultSettings devuelve los valores de fábrica.
func DefaultSettings() Settings {
	return Settings{
		Currency:   "DA",
		Locale:     "fr",
		Categories: []string{"Chaises", "Tables", "Décor", "Sonorisation"},
	}
}

// Separador histórico de los CSV de la aplicación.
const csvSeparator = ';'

var articleHeader = []string{"id", "name", "category", "pricePerDay", "totalUnits", "brokenUnits", "lowStockAlert", "depositUnit", "active"}

// ArticlesCSV exporta los artículos en CSV separado por punto y coma.
func ArticlesCSV(articles []rental.Article) (string, error) {
	var builder strings.Builder
	writer := csv.NewWriter(&builder)
	writer.Comma = csvSeparator

	if err := writer.Write(articleHeader); err != nil {
		return "", err
	}
	for _, article := range articles {
		active := "0"
		if article.Active {
			active = "1"
		}
		record := []string{
			article.ID,
			article.Name,
			stringOrEmpty(article.Category),
			article.PricePerDay,
			strconv.Itoa(article.TotalUnits),
			strconv.Itoa(article.BrokenUnits),
			intOrEmpty(article.LowStockAlert),
			stringOrEmpty(article.DepositUnit),
			active,
		}
		if err := writer.Write(record); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return builder.String(), writer.Error()
}

// ParseArticlesCSV lee un CSV con el header de ArticlesCSV. Las columnas
// se resuelven por nombre, no por posición.
func ParseArticlesCSV(text string) ([]rental.Article, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = csvSeparator
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing articles csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("parsing articles csv: empty input")
	}

	index := make(map[string]int, len(records[0]))
	for position, name := range records[0] {
		index[strings.TrimSpace(name)] = position
	}
	field := func(record []string, name string) string {
		position, ok := index[name]
		if !ok || position >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[position])
	}

	var articles []rental.Article
	for _, record := range records[1:] {
		article := rental.Article{
			ID:          field(record, "id"),
			Name:        field(record, "name"),
			PricePerDay: field(record, "pricePerDay"),
			Active:      field(record, "active") == "1" || strings.EqualFold(field(record, "active"), "true"),
		}
		if category := field(record, "category"); category != "" {
			article.Category = &category
		}
		article.TotalUnits, _ = strconv.Atoi(field(record, "totalUnits"))
		article.BrokenUnits, _ = strconv.Atoi(field(record, "brokenUnits"))
		if raw := field(record, "lowStockAlert"); raw != "" {
			if alert, err := strconv.Atoi(raw); err == nil {
				article.LowStockAlert = &alert
			}
		}
		if deposit := field(record, "depositUnit"); deposit != "" {
			article.DepositUnit = &deposit
		}
		if err := article.Validate(); err != nil {
			return nil, fmt.Errorf("parsing articles csv: row %q: %w", article.ID, err)
		}
		articles = append(articles, article)
	}
	return articles, nil
}

// MergeArticles separa los entrantes en nuevos y colisiones de id.
// Las colisiones no se pisan: el import reporta y sigue.
func MergeArticles(existing []rental.Article, incoming []rental.Article) (added []rental.Article, collisions []string) {
	known := make(map[string]bool, len(existing))
	for _, article := range existing {
		known[article.ID] = true
	}
	for _, article := range incoming {
		if known[article.ID] {
			collisions = append(collisions, article.ID)
			continue
		}
		added = append(added, article)
	}
	return added, collisions
}

// Dump es el volcado JSON completo, con la configuración embebida como
// metadata.
type Dump struct {
	Settings         Settings                 `json:"settings"`
	ExportedAt       time.Time                `json:"exportedAt"`
	Articles         []rental.Article         `json:"articles"`
	Reservations     []rental.Reservation     `json:"reservations"`
	ReservationItems []rental.ReservationItem `json:"reservationItems"`
}

// JSONDump serializa el volcado completo.
func JSONDump(settings Settings, articles []rental.Article, reservations []rental.Reservation, items []rental.ReservationItem) ([]byte, error) {
	return json.MarshalIndent(Dump{
		Settings:         settings,
		ExportedAt:       time.Now().UTC(),
		Articles:         articles,
		Reservations:     reservations,
		ReservationItems: items,
	}, "", "  ")
}

// ParseJSONDump deserializa un volcado completo.
func ParseJSONDump(data []byte) (Dump, error) {
	var dump Dump
	if err := json.Unmarshal(data, &dump); err != nil {
		return Dump{}, fmt.Errorf("parsing dump: %w", err)
	}
	return dump, nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func intOrEmpty(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}
