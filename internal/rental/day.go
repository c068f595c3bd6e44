package rental

import (
	"fmt"
	"time"
)

// Day es un día calendario inclusivo en formato ISO "YYYY-MM-DD".
// Se compara lexicográficamente: para fechas ISO válidas es equivalente a
// comparar fechas y elimina de raíz los falsos negativos por zona horaria
// (nunca hay hora que recortar).
type Day string

const dayLayout = "2006-01-02"

// ParseDay valida el formato y normaliza el valor.
func ParseDay(raw string) (Day, error) {
	parsed, err := time.Parse(dayLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid day %q: %w", raw, err)
	}
	return Day(parsed.Format(dayLayout)), nil
}

// DayOf recorta la hora de un instante y lo convierte a día calendario.
func DayOf(instant time.Time) Day {
	return Day(instant.Format(dayLayout))
}

// Today devuelve el día calendario actual en UTC.
func Today() Day {
	return DayOf(time.Now().UTC())
}

// Valid indica si el día tiene formato ISO parseable.
func (day Day) Valid() bool {
	_, err := ParseDay(string(day))
	return err == nil
}

// Before compara días calendario (estricto).
func (day Day) Before(other Day) bool {
	return string(day) < string(other)
}

// After compara días calendario (estricto).
func (day Day) After(other Day) bool {
	return string(day) > string(other)
}
