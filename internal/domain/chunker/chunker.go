// Package chunker splits raw text into ordered segments along natural
// language boundaries, the way a RecursiveCharacterTextSplitter does: prefer
// paragraph breaks, then line breaks, then sentence terminators, falling
// back to words and finally raw characters. Grounded on the separator order
// and recursive-split behavior of fact_extraction.py's chunk_text, ported to
// Go without a LangChain-equivalent dependency.
package chunker

// Default size presets used by the retain pipeline.
const (
	// MaxCharsExtraction bounds a single fact-extraction chunk.
	MaxCharsExtraction = 3000
	// MaxCharsBulk bounds a bulk-preprocessing chunk.
	MaxCharsBulk = 120000
)

var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Split divides text into an ordered sequence of chunks no larger than
// maxChars, except where a chunk must exceed it to reach a natural boundary.
// Text at or under maxChars yields a single chunk.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = MaxCharsExtraction
	}
	if len(text) <= maxChars {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	return splitRecursive(text, maxChars, 0)
}

func splitRecursive(text string, maxChars int, sepIdx int) []string {
	if len(text) <= maxChars {
		return []string{text}
	}
	if sepIdx >= len(separators) {
		return splitByChars(text, maxChars)
	}

	sep := separators[sepIdx]
	pieces := splitKeepSeparator(text, sep)
	if len(pieces) <= 1 {
		return splitRecursive(text, maxChars, sepIdx+1)
	}

	return mergePieces(pieces, maxChars, sepIdx)
}

// splitKeepSeparator splits text on sep, re-attaching sep to the end of
// every piece but the last so concatenation reproduces the input exactly.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	var pieces []string
	for {
		idx := indexOf(text, sep)
		if idx == -1 {
			pieces = append(pieces, text)
			break
		}
		pieces = append(pieces, text[:idx+len(sep)])
		text = text[idx+len(sep):]
	}
	return pieces
}

func indexOf(text, sep string) int {
	for i := 0; i+len(sep) <= len(text); i++ {
		if text[i:i+len(sep)] == sep {
			return i
		}
	}
	return -1
}

// mergePieces greedily packs consecutive pieces into chunks up to maxChars;
// any single piece that still exceeds maxChars is recursed on with the next
// separator in line.
func mergePieces(pieces []string, maxChars, sepIdx int) []string {
	var chunks []string
	var current string

	flush := func() {
		if current != "" {
			chunks = append(chunks, current)
			current = ""
		}
	}

	for _, p := range pieces {
		if len(p) > maxChars {
			flush()
			chunks = append(chunks, splitRecursive(p, maxChars, sepIdx+1)...)
			continue
		}
		if len(current)+len(p) > maxChars {
			flush()
		}
		current += p
	}
	flush()
	return chunks
}

func splitByChars(text string, maxChars int) []string {
	var chunks []string
	runes := []rune(text)
	for len(runes) > 0 {
		n := maxChars
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}
