package main

// Book es la fila canónica del catálogo. Quantity nunca baja de cero:
// solo se muta vía Decrement o vía Update (delta), nunca por asignación
// directa.
type Book struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Topic    string  `json:"topic"`
}

// Patch enumera los únicos campos modificables vía /update:
// Price reemplaza el valor absoluto, QuantityDelta suma (con signo)
// sobre la cantidad actual. El JSON entrante usa la clave "quantity"
// para el delta.
type Patch struct {
	Price         *float64 `json:"price"`
	QuantityDelta *int64   `json:"quantity"`
}

func (p Patch) Empty() bool { return p.Price == nil && p.QuantityDelta == nil }
