// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package tokens

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tokenizer used when none is configured.
const DefaultEncoding = "cl100k_base"

// Counter counts and truncates text in model tokens.
// One Counter is shared by every component that reasons about token budgets.
type Counter interface {
	// Count returns the number of tokens in text. Empty text has zero tokens.
	Count(text string) int

	// Truncate returns a prefix of text with at most max tokens.
	Truncate(text string, max int) string
}

// EstimateCounter approximates tokens as one per four characters.
type EstimateCounter struct{}

var _ Counter = EstimateCounter{}

// Count returns ceil(runes / 4).
func (EstimateCounter) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Truncate keeps the first max*4 runes.
func (EstimateCounter) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	limit := max * 4
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

// TiktokenCounter counts BPE tokens with a tiktoken encoding and falls back to
// EstimateCounter when the encoding is unavailable or fails.
type TiktokenCounter struct {
	enc      *tiktoken.Tiktoken
	fallback EstimateCounter
	logger   *slog.Logger
	warnOnce sync.Once
}

var _ Counter = (*TiktokenCounter)(nil)

// NewTiktokenCounter loads the named encoding. A load failure is logged and
// the counter falls back to estimation rather than returning an error.
func NewTiktokenCounter(encoding string, logger *slog.Logger) *TiktokenCounter {
	if logger == nil {
		logger = slog.Default()
	}
	if encoding == "" {
		encoding = DefaultEncoding
	}
	c := &TiktokenCounter{logger: logger.With("component", "token-counter")}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		c.warn("tokenizer unavailable, estimating token counts", "encoding", encoding, "err", err)
		return c
	}
	c.enc = enc
	return c
}

// Exact reports whether counts come from the tokenizer rather than the estimate.
func (c *TiktokenCounter) Exact() bool {
	return c.enc != nil
}

func (c *TiktokenCounter) warn(msg string, args ...any) {
	c.warnOnce.Do(func() {
		c.logger.Warn(msg, args...)
	})
}

func (c *TiktokenCounter) encode(text string) (ids []int, ok bool) {
	if c.enc == nil {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			c.warn("tokenizer failed, estimating token counts", "panic", r)
			ids, ok = nil, false
		}
	}()
	return c.enc.Encode(text, nil, nil), true
}

// Count returns the token count of text.
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	ids, ok := c.encode(text)
	if !ok {
		return c.fallback.Count(text)
	}
	return len(ids)
}

// Truncate decodes the first max tokens. Bytes of a rune split across the
// cut are dropped, and the cut moves back until the result fits.
func (c *TiktokenCounter) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	ids, ok := c.encode(text)
	if !ok {
		return c.fallback.Truncate(text, max)
	}
	if len(ids) <= max {
		return text
	}
	for k := max; k > 0; k-- {
		out := trimInvalidUTF8(c.enc.Decode(ids[:k]))
		if c.Count(out) <= max {
			return out
		}
	}
	return ""
}

// trimInvalidUTF8 removes a partial rune left at the end of s.
func trimInvalidUTF8(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size > 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return strings.ToValidUTF8(s, "")
}
