package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DecrementTimeout acota la espera de la reserva remota. Sin retry: si
// la llamada expira, el resultado real en el catálogo queda desconocido
// y se reporta como inalcanzable (comportamiento documentado).
const DecrementTimeout = 5 * time.Second

// DecrementResult es la respuesta upstream tal cual: status + body, sin
// interpretar. El server decide qué reenviar.
type DecrementResult struct {
	Status int
	Body   []byte
}

type CatalogClient struct {
	base string
	hc   *http.Client
}

func NewCatalogClient(base string) *CatalogClient {
	return &CatalogClient{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: DecrementTimeout},
	}
}

func (c *CatalogClient) Decrement(ctx context.Context, itemID int64) (*DecrementResult, error) {
	url := fmt.Sprintf("%s/decrement/%d", c.base, itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil { return nil, err }

	resp, err := c.hc.Do(req)
	if err != nil { return nil, err }
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil { return nil, err }
	return &DecrementResult{Status: resp.StatusCode, Body: body}, nil
}
