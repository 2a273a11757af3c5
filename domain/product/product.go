// Package product defines the catalog product record indexed by the search
// services.
package product

import "strings"

// Product is the authoritative catalog record for an indexed product.
// VariantCombo is a human-readable flattening of the variant attribute list,
// already flattened by the catalog query.
type Product struct {
	ID           int64  `json:"id"`
	ParentID     int64  `json:"id_padre"`
	Active       bool   `json:"activo"`
	Name         string `json:"nombre"`
	Description  string `json:"descripcion"`
	VariantCombo string `json:"variante_comb"`
}

// Text returns the corpus text used to embed the product: the
// space-joined name, description and variant combination, trimmed.
func (p Product) Text() string {
	return strings.TrimSpace(p.Name + " " + p.Description + " " + p.VariantCombo)
}
