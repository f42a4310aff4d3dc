package parser

import (
	"context"
	"fmt"
	"io"
	"os"
)

// MaxTranscriptSize bounds how much of a single transcript file is read.
const MaxTranscriptSize = 256 * 1024 * 1024

// ParseFile reads a transcript file in full and parses it.
// The whole file is needed because format characters may straddle line
// terminators.
func (p *Parser) ParseFile(ctx context.Context, path string) ([]Message, Stats, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, Stats{}, fmt.Errorf("opening transcript %s: %w", path, err)
	}
	defer f.Close()

	return p.ParseReader(ctx, f)
}

// ParseReader reads r to the end and parses the content.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader) ([]Message, Stats, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxTranscriptSize+1))
	if err != nil {
		return nil, Stats{}, fmt.Errorf("reading transcript: %w", err)
	}
	if len(data) > MaxTranscriptSize {
		return nil, Stats{}, fmt.Errorf("transcript exceeds %d bytes", MaxTranscriptSize)
	}

	// Parsing itself has no cancellation points.
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}

	return p.ParseBytes(data)
}
