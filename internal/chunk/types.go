// Package chunk holds the chunk record produced by every splitting strategy,
// the token estimator and the size policy that decides when splitting is needed.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// namespace for deterministic chunk IDs.
var idSpace = uuid.MustParse("5c0a3a52-7f0e-4c59-9b3f-0d3f6c8f2a11")

// Strategy names the splitter that produced a chunk.
type Strategy string

const (
	StrategyPeriod   Strategy = "period"
	StrategyTemporal Strategy = "temporal"
	StrategyThematic Strategy = "thematic"
	StrategyRecent   Strategy = "recent"
	StrategyAuto     Strategy = "auto"
)

// Chunk is a bounded slice of a transcript plus the metadata extracted from it.
type Chunk struct {
	ID       uuid.UUID
	Strategy Strategy
	Index    int
	Title    string
	// Group is the period or theme this chunk belongs to, used for file naming.
	Group string
	Lines []string
	// Overlap is how many leading lines repeat the tail of the previous chunk.
	Overlap  int
	Hash     string
	Metadata Metadata
}

// Metadata describes what a chunk covers. Zero dates mean no dated line was seen.
type Metadata struct {
	DateStart    time.Time `json:"date_start"`
	DateEnd      time.Time `json:"date_end"`
	Participants []string  `json:"participants"`
	Topics       []string  `json:"topics"`
	TokenCount   int       `json:"token_count"`
	MessageCount int       `json:"message_count"`
	LineCount    int       `json:"line_count"`
}

// Content joins the chunk lines back into transcript text.
func (c Chunk) Content() string {
	return strings.Join(c.Lines, "\n")
}

// Fresh returns the lines that are not overlap carried from the previous chunk.
func (c Chunk) Fresh() []string {
	if c.Overlap >= len(c.Lines) {
		return nil
	}
	return c.Lines[c.Overlap:]
}

// Seal computes the content hash and the deterministic ID. It must be called
// once Lines, Strategy, Index and Title are final.
func (c *Chunk) Seal() {
	sum := sha256.Sum256([]byte(c.Content()))
	c.Hash = hex.EncodeToString(sum[:])
	c.ID = uuid.NewSHA1(idSpace, []byte(fmt.Sprintf("%s|%d|%s|%s", c.Strategy, c.Index, c.Title, c.Hash)))
}

// Renumber assigns sequential indexes in slice order and reseals each chunk.
func Renumber(chunks []Chunk) {
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Seal()
	}
}
