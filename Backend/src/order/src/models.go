package main

// Order es una fila del log de compras: append-only, inmutable, nunca
// se borra. ItemID es una referencia débil al catálogo (solo clave de
// búsqueda, sin integridad referencial entre stores).
type Order struct {
	ID        int64  `json:"id"`
	ItemID    int64  `json:"item_id"`
	CreatedAt string `json:"created_at"`
}
