package chat

import (
	"log"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter measures prompt text so context assembly can stay
// inside the model's window.
type TokenCounter interface {
	Count(text string) int
}

// tiktokenCounter counts with the cl100k_base encoding.
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// estimateCounter approximates one token per four bytes, used when
// the encoding cannot be loaded.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	return (len(text) + 3) / 4
}

// NewTokenCounter returns a tiktoken-backed counter, falling back to
// a byte-length estimate if the encoding is unavailable.
func NewTokenCounter() TokenCounter {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		log.Printf("chat: loading token encoding: %v, falling back to estimate", err)
		return estimateCounter{}
	}
	return &tiktokenCounter{enc: enc}
}
