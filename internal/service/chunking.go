package service

import (
	"strings"
	"unicode"

	"github.com/cloo-solutions/vaidya/internal/domain"
)

// DefaultAbbreviations are tokens after which a period never ends a sentence.
var DefaultAbbreviations = []string{
	"Dr.", "Mr.", "Mrs.", "Ms.", "Prof.", "Sr.", "Jr.", "St.",
	"vs.", "etc.", "i.e.", "e.g.", "cf.", "al.", "approx.", "Fig.", "fig.",
	"Vol.", "vol.", "No.", "no.", "pp.", "p.", "Ref.", "ref.",
	"mg/dL", "mg/kg", "mmol/L", "mEq/L", "mm Hg", "mmHg", "kg/m2", "mcg", "mg", "mL", "ml",
	"b.i.d.", "t.i.d.", "q.i.d.", "p.o.", "i.v.", "q.d.", "h.s.",
}

// ChunkConfig controls how documents are split for embedding.
type ChunkConfig struct {
	ChunkSize     int
	Overlap       int
	Abbreviations []string
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize:     1000,
		Overlap:       200,
		Abbreviations: DefaultAbbreviations,
	}
}

// Chunker splits cleaned document text into sentence-aligned, overlapping chunks.
type Chunker struct {
	cfg ChunkConfig
}

// NewChunker creates a Chunker. Zero values in cfg fall back to defaults.
func NewChunker(cfg ChunkConfig) *Chunker {
	def := DefaultChunkConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.Abbreviations == nil {
		cfg.Abbreviations = def.Abbreviations
	}
	return &Chunker{cfg: cfg}
}

// Chunk cleans text and splits it using the configured size and overlap.
func (c *Chunker) Chunk(text string, meta domain.ChunkMetadata) []domain.Chunk {
	return chunkText(text, c.cfg.ChunkSize, c.cfg.Overlap, c.cfg.Abbreviations, meta)
}

// ChunkWith splits text with an explicit size and overlap.
func (c *Chunker) ChunkWith(text string, chunkSize, overlap int, meta domain.ChunkMetadata) []domain.Chunk {
	if chunkSize <= 0 {
		chunkSize = c.cfg.ChunkSize
	}
	return chunkText(text, chunkSize, overlap, c.cfg.Abbreviations, meta)
}

// CleanText collapses whitespace, drops non-ASCII and control characters, and trims.
func CleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if r < 0x20 || r > 0x7E {
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

type sentenceSpan struct {
	start int
	end   int
}

func chunkText(text string, chunkSize, overlap int, abbreviations []string, meta domain.ChunkMetadata) []domain.Chunk {
	clean := CleanText(text)
	if clean == "" {
		return nil
	}

	sentences := splitSentences(clean, abbreviations)
	groups := make([][]sentenceSpan, 0, len(clean)/chunkSize+1)

	var current []sentenceSpan
	for _, s := range sentences {
		if len(current) > 0 && s.end-current[0].start > chunkSize {
			groups = append(groups, current)
			current = carryOver(current, s, chunkSize, overlap)
		}
		current = append(current, s)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}

	chunks := make([]domain.Chunk, 0, len(groups))
	for i, g := range groups {
		start := g[0].start
		end := g[len(g)-1].end
		chunkMeta := domain.ChunkMetadata{
			ChunkIndex:     i,
			TotalChunks:    len(groups),
			ChunkLength:    end - start,
			IsContinuation: i > 0,
			IsLastChunk:    i == len(groups)-1,
			StartPosition:  start,
			EndPosition:    end,
		}.Merge(meta)

		chunks = append(chunks, domain.Chunk{
			Text:        clean[start:end],
			Index:       i,
			StartOffset: start,
			EndOffset:   end,
			Metadata:    chunkMeta,
		})
	}
	return chunks
}

// carryOver keeps the last half of the closed chunk's sentences, bounded by the
// overlap budget and by what still fits next to the incoming sentence.
func carryOver(closed []sentenceSpan, next sentenceSpan, chunkSize, overlap int) []sentenceSpan {
	if overlap <= 0 {
		return nil
	}
	keep := closed[len(closed)/2:]
	for len(keep) > 0 {
		carried := keep[len(keep)-1].end - keep[0].start
		if carried <= overlap && next.end-keep[0].start <= chunkSize {
			break
		}
		keep = keep[1:]
	}
	if len(keep) == 0 {
		return nil
	}
	out := make([]sentenceSpan, len(keep))
	copy(out, keep)
	return out
}

// splitSentences returns trimmed sentence spans. Terminal punctuation stays with
// its sentence.
func splitSentences(text string, abbreviations []string) []sentenceSpan {
	var spans []sentenceSpan
	start := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c == '.' || c == '!' || c == '?':
			j := i + 1
			for j < len(text) && isASCIISpace(text[j]) {
				j++
			}
			if j == i+1 || j >= len(text) || !isUpperOrDigit(text[j]) {
				continue
			}
			if c == '.' && endsWithAbbreviation(text[:i], abbreviations) {
				continue
			}
			spans = appendSpan(spans, text, start, i+1)
			start = j
			i = j - 1
		case c == '\n':
			j := i + 1
			for j < len(text) && isASCIISpace(text[j]) {
				j++
			}
			if j >= len(text) || !isUpperOrDigit(text[j]) {
				continue
			}
			spans = appendSpan(spans, text, start, i)
			start = j
			i = j - 1
		}
	}
	return appendSpan(spans, text, start, len(text))
}

func appendSpan(spans []sentenceSpan, text string, start, end int) []sentenceSpan {
	for start < end && isASCIISpace(text[start]) {
		start++
	}
	for end > start && isASCIISpace(text[end-1]) {
		end--
	}
	if end <= start {
		return spans
	}
	return append(spans, sentenceSpan{start: start, end: end})
}

// endsWithAbbreviation reports whether the text before a period ends with a
// listed abbreviation on a word boundary.
func endsWithAbbreviation(before string, abbreviations []string) bool {
	for _, abbr := range abbreviations {
		candidate := before
		if strings.HasSuffix(abbr, ".") {
			candidate = before + "."
		}
		if !strings.HasSuffix(candidate, abbr) {
			continue
		}
		p := len(candidate) - len(abbr)
		if p == 0 || !isASCIILetter(candidate[p-1]) {
			return true
		}
	}
	return false
}

func isASCIISpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isUpperOrDigit(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
