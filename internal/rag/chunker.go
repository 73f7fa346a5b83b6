package rag

import (
	"regexp"
	"strings"
)

// DefaultMaxChunkChars is the chunk size limit used when callers pass 0.
const DefaultMaxChunkChars = 1000

// paragraphSep matches one or more blank lines (lines containing only
// whitespace count as blank). Input is normalized to LF line endings
// before this is applied.
var paragraphSep = regexp.MustCompile(`\n[ \t]*\n+`)

// chunkJoiner is the separator inserted between paragraphs packed into the
// same chunk. Its length is the separator overhead accounted for when
// deciding whether a paragraph still fits.
const chunkJoiner = "\n"

// ChunkText splits rawText into bounded-size chunks along paragraph boundaries.
//
// Paragraphs are delimited by blank lines. Each paragraph is trimmed and
// empty paragraphs are dropped. Consecutive paragraphs are greedily packed
// into a chunk, joined with a single newline, until adding the next
// paragraph would push the chunk past maxChunkChars — then the chunk is
// flushed and a new one starts. A single paragraph longer than maxChunkChars
// becomes its own oversized chunk; paragraphs are never split internally.
//
// Every returned chunk is non-empty, and the chunks contain exactly the
// original non-empty paragraphs in order — nothing dropped, nothing
// duplicated.
func ChunkText(rawText string, maxChunkChars int) []string {
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}

	paragraphs := SplitParagraphs(rawText)
	if len(paragraphs) == 0 {
		return nil
	}

	var chunks []string
	var buf strings.Builder

	for _, p := range paragraphs {
		if buf.Len() > 0 && buf.Len()+len(chunkJoiner)+len(p) > maxChunkChars {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString(chunkJoiner)
		}
		buf.WriteString(p)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}

	return chunks
}

// SplitParagraphs returns the trimmed, non-empty paragraphs of rawText in
// order. Exported so tests can verify the chunker's no-loss guarantee against
// the same segmentation the chunker uses.
func SplitParagraphs(rawText string) []string {
	// CRLF-authored documents would otherwise never match the blank-line
	// separator (the \r lands between the two newlines).
	rawText = strings.ReplaceAll(rawText, "\r\n", "\n")
	parts := paragraphSep.Split(rawText, -1)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
