package main

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// searchCache cachea respuestas de /search por topic normalizado.
// Es seguro no invalidar nunca: ids y títulos son inmutables y el
// catálogo no crea ni borra filas después del seed.
type searchCache struct {
	lru *lru.Cache[string, map[string]int64]
}

func newSearchCache(size int) *searchCache {
	c, err := lru.New[string, map[string]int64](size)
	if err != nil {
		panic(err) // solo posible con size <= 0
	}
	return &searchCache{lru: c}
}

func (c *searchCache) Get(topic string) (map[string]int64, bool) {
	return c.lru.Get(topic)
}

func (c *searchCache) Add(topic string, items map[string]int64) {
	c.lru.Add(topic, items)
}
