// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize bounds the number of distinct contents kept parsed.
const cacheSize = 1024

// templates caches parsed Templates by content. Templates are never
// modified once parsed, so they are shared between statements.
var templates = newCache(cacheSize)

func newCache(size int) *lru.Cache[string, *Template] {
	c, err := lru.New[string, *Template](size)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse returns the Template of content, parsing it on first use.
func Parse(content string) (*Template, error) {
	if t, ok := templates.Get(content); ok {
		return t, nil
	}
	t, err := NewParser().Parse(content)
	if err != nil {
		return nil, err
	}
	templates.Add(content, t)
	return t, nil
}
