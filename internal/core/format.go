package core

import (
	"fmt"
	"strings"
)

// DefaultChunkSize is the largest message most chat transports accept.
const DefaultChunkSize = 4096

// Format renders a change batch and splits it into chunks of at most
// maxChunk characters. Chunks are cut at arbitrary character boundaries.
// A non-positive maxChunk uses DefaultChunkSize.
func Format(changes []Change, mode NotificationFormat, maxChunk int) []string {
	var b strings.Builder

	switch mode {
	case FormatCompact:
		b.WriteString("Changes:\n")
		for _, c := range changes {
			fmt.Fprintf(&b, "%s: %s → %s\n", c.Cell, c.OldText(), c.NewText())
		}
	default:
		b.WriteString("Changes detected:\n\n")
		for _, c := range changes {
			fmt.Fprintf(&b, "Cell %s (column '%s')\nWas: %s\nNow: %s\n\n",
				c.Cell, c.Column, c.OldText(), c.NewText())
		}
	}

	return Chunk(b.String(), maxChunk)
}

// Chunk splits text into pieces of at most size runes.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}

	runes := []rune(text)
	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
