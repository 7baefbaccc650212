package service

import (
	"strings"

	"github.com/morphlabs/roomctx/internal/domain"
)

// ChunkConfig controls how document text is split into chunks.
type ChunkConfig struct {
	// Size is the maximum chunk length in runes.
	Size int
	// Overlap is the number of runes shared between consecutive chunks.
	Overlap int
}

// DefaultChunkConfig matches the sizing used for ingestion.
var DefaultChunkConfig = ChunkConfig{Size: 1000, Overlap: 200}

func (c ChunkConfig) validate() error {
	if c.Size <= 0 {
		return domain.ErrInvalidChunkOverlap
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return domain.ErrInvalidChunkOverlap
	}
	return nil
}

// ChunkText splits text into overlapping chunks, preferring to break at
// sentence boundaries. A boundary is the last '.' or '\n' inside the window,
// used only when it falls past the midpoint of the window so chunks do not
// degenerate into fragments. Whitespace-only chunks are dropped.
func ChunkText(text string, cfg ChunkConfig) ([]string, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil, nil
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + cfg.Size
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		breakPoint := -1
		for i := end - 1; i > start; i-- {
			if runes[i] == '.' || runes[i] == '\n' {
				breakPoint = i
				break
			}
		}

		next := end - cfg.Overlap
		if breakPoint != -1 && (breakPoint-start)*2 > cfg.Size {
			end = breakPoint + 1
			next = end - cfg.Overlap
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		// Overlap must never stall the scan.
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks, nil
}
