package entity

import "time"

// SKU referencia de producto de un cliente (datos de referencia; el núcleo no los administra).
type SKU struct {
	ID        string
	ClientID  string
	Code      string
	Name      string
	Barcode   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Location ubicación física dentro de la bodega.
type Location struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BarcodeMatch resultado del contrato de búsqueda de códigos de barras.
type BarcodeMatch struct {
	Found        bool
	MatchedTable string
	MatchedID    string
}
