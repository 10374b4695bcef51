/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package games

import (
	_ "embed"
	"encoding/json"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/Seednode/imposterbox/errs"
)

//go:embed words.json
var builtinWords []byte

type WordPair struct {
	Category     string `json:"category"`
	CivilianWord string `json:"civilianWord"`
	ImposterWord string `json:"imposterWord"`
}

// WordSource supplies word content to the engines.
type WordSource interface {
	Categories() []string
	DrawPair(rng Random, categories []string) (WordPair, error)
	DrawWords(rng Random, n int) ([]string, error)
}

// Catalog is an in-memory WordSource keyed by category.
type Catalog struct {
	pairs map[string][][2]string
}

func NewCatalog(pairs map[string][][2]string) *Catalog {
	return &Catalog{pairs: pairs}
}

// DefaultCatalog parses the word list embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	pairs := make(map[string][][2]string)
	if err := json.Unmarshal(builtinWords, &pairs); err != nil {
		return nil, err
	}

	return NewCatalog(pairs), nil
}

func (c *Catalog) Categories() []string {
	names := lo.Keys(c.pairs)
	slices.Sort(names)

	return names
}

// DrawPair picks a category uniformly from categories, or from every
// category when none are given, then a pair uniformly within it.
func (c *Catalog) DrawPair(rng Random, categories []string) (WordPair, error) {
	if len(categories) == 0 {
		categories = c.Categories()
	}

	for _, name := range categories {
		if len(c.pairs[name]) == 0 {
			return WordPair{}, errs.Validation("unknown or empty category %q", name)
		}
	}

	if len(categories) == 0 {
		return WordPair{}, errs.Validation("no word categories available")
	}

	name := categories[rng.IntN(len(categories))]
	pairs := c.pairs[name]
	pair := pairs[rng.IntN(len(pairs))]

	return WordPair{
		Category:     name,
		CivilianWord: pair[0],
		ImposterWord: pair[1],
	}, nil
}

// DrawWords returns n distinct words pooled from every pair.
func (c *Catalog) DrawWords(rng Random, n int) ([]string, error) {
	var pool []string
	for _, name := range c.Categories() {
		for _, pair := range c.pairs[name] {
			pool = append(pool, strings.ToLower(pair[0]), strings.ToLower(pair[1]))
		}
	}
	pool = lo.Uniq(pool)

	if len(pool) < n {
		return nil, errs.Validation("need %d words but only %d are available", n, len(pool))
	}

	return shuffled(rng, pool)[:n], nil
}
