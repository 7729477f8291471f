package parser

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jens-ox/fog-of-war/pkg/datastructure"
	"github.com/klauspost/compress/gzip"
)

// Parser decodes one input file into a sequence of track points. Parsers are
// stateless, running two of them in parallel on different files is always safe.
type Parser interface {
	Parse(r io.Reader) ([]datastructure.GeoPoint, error)
	Name() string
}

// ParseError marks malformed structured input (XML/JSON). Recoverable at the
// coordinator level: the file is skipped, the run continues.
type ParseError struct {
	Parser string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: parse error: %v", e.Parser, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// FormatError marks an unreadable binary stream (bad header, bad checksum).
// Recoverable at the coordinator level, same as ParseError.
type FormatError struct {
	Parser string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: format error: %v", e.Parser, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// timelineDocumentName is the single recognized timeline document
// (Google Takeout location history).
const timelineDocumentName = "Records.json"

// invalidCoordinate is far outside the valid degree range, so points built
// from missing or unparsable source values fail the coordinator's validity
// check and get dropped with a count instead of aborting the file.
const invalidCoordinate = 999.0

type registryEntry struct {
	matches func(base string) bool
	parser  Parser
}

// Registry maps recognized filename patterns to parsers. Files matching no
// pattern are not an error, Lookup just reports no match.
type Registry struct {
	entries []registryEntry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: []registryEntry{
			{
				matches: func(base string) bool {
					return strings.HasSuffix(strings.ToLower(base), ".fit.gz")
				},
				parser: NewFitParser(),
			},
			{
				matches: func(base string) bool {
					lower := strings.ToLower(base)
					return strings.HasSuffix(lower, ".gpx") || strings.HasSuffix(lower, ".gpx.gz")
				},
				parser: NewGpxParser(),
			},
			{
				matches: func(base string) bool {
					return base == timelineDocumentName
				},
				parser: NewTimelineParser(),
			},
		},
	}
}

// Lookup returns the parser responsible for the given path, if any.
func (r *Registry) Lookup(path string) (Parser, bool) {
	base := filepath.Base(path)
	for _, entry := range r.entries {
		if entry.matches(base) {
			return entry.parser, true
		}
	}
	return nil, false
}

var gzipMagic = []byte{0x1f, 0x8b}

// maybeGunzip transparently decompresses gzip input, detected by magic bytes
// rather than filename, so every adapter accepts both the plain and the
// compressed form of its format.
func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil {
		// too short to be any of the supported formats, hand the bytes on
		// unchanged and let the adapter report the real problem
		return br, nil
	}
	if head[0] != gzipMagic[0] || head[1] != gzipMagic[1] {
		return br, nil
	}
	return gzip.NewReader(br)
}
