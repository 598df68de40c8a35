package bills

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no bill exists for a given key.
var ErrNotFound = errors.New("bill not found")

// Key is the natural identifier of a bill: congress number, bill type
// (normalized to upper case) and bill number. It is unique across the
// document store and the vector index.
type Key struct {
	Congress int    `json:"congress"`
	Type     string `json:"type"`
	Number   string `json:"number"`
}

// NewKey builds a Key, normalizing the bill type to upper case.
func NewKey(congress int, billType, number string) Key {
	return Key{
		Congress: congress,
		Type:     strings.ToUpper(strings.TrimSpace(billType)),
		Number:   strings.TrimSpace(number),
	}
}

// String renders the key in its canonical "congress-TYPE-number" form,
// used as the vector index id prefix and the single-flight key.
func (k Key) String() string {
	return fmt.Sprintf("%d-%s-%s", k.Congress, k.Type, k.Number)
}

// Bill is the stored record for one legislative document. Records are
// created on first discovery, enriched in place and never hard-deleted.
type Bill struct {
	Key             Key
	Title           string
	Status          string
	TextLink        string
	PDFLinks        []string
	Summary         string
	HasText         bool
	EnrichmentError string
	UpdateDate      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
