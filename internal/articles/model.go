package articles

// CreateArticleInput representa el payload para crear un artículo.
// Nota: PricePerDay es string por precisión (DB: numeric(10,2)).
type CreateArticleInput struct {
	Name          string  `json:"name"`
	Category      *string `json:"category,omitempty"`
	Description   *string `json:"description,omitempty"`
	PricePerDay   string  `json:"pricePerDay"`
	TotalUnits    int     `json:"totalUnits"`
	BrokenUnits   int     `json:"brokenUnits"`
	LowStockAlert *int    `json:"lowStockAlert,omitempty"`
	DepositUnit   *string `json:"depositUnit,omitempty"`
}

// UpdateArticleInput representa un PATCH parcial: solo los campos
// presentes se tocan. DescriptionPresent distingue "description": null
// (setear NULL) de la ausencia del campo (no tocar); el handler lo
// completa leyendo el JSON crudo.
type UpdateArticleInput struct {
	Name               *string `json:"name,omitempty"`
	Category           *string `json:"category,omitempty"`
	Description        *string `json:"description,omitempty"`
	PricePerDay        *string `json:"pricePerDay,omitempty"`
	TotalUnits         *int    `json:"totalUnits,omitempty"`
	BrokenUnits        *int    `json:"brokenUnits,omitempty"`
	LowStockAlert      *int    `json:"lowStockAlert,omitempty"`
	DepositUnit        *string `json:"depositUnit,omitempty"`
	Active             *bool   `json:"active,omitempty"`
	DescriptionPresent bool    `json:"-"`
}

func (input UpdateArticleInput) empty() bool {
	return input.Name == nil && input.Category == nil && input.Description == nil &&
		!input.DescriptionPresent && input.PricePerDay == nil && input.TotalUnits == nil &&
		input.BrokenUnits == nil && input.LowStockAlert == nil && input.DepositUnit == nil &&
		input.Active == nil
}
