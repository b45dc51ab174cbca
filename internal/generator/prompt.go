package generator

import (
	"sort"
	"strings"

	"github.com/54b3r/pdfqa-go/internal/rag"
)

// maxContextChars bounds the retrieved context included in the prompt.
// Applies before token-budget truncation of the whole prompt.
const maxContextChars = 3000

// promptHeader is the instruction block preceding the context.
const promptHeader = `You are a helpful AI assistant tasked with answering questions based on provided context.
Always provide detailed, multi-sentence answers that thoroughly explain the topic.
Never give one-word or short answers - explain your reasoning and provide context.

Based on the following context from a document, provide a comprehensive and detailed answer to the question.
If the answer cannot be found in the context, clearly state that and explain why.
Use only information from the context - do not make assumptions or add external information.`

// promptRequirements are the numbered answer requirements.
const promptRequirements = `Requirements for your answer:
1. ALWAYS write at least 3-4 complete sentences
2. Include specific examples, numbers, or quotes from the context to support your answer
3. Explain any technical terms or concepts mentioned
4. Structure your answer logically with clear transitions
5. If relevant, mention relationships between different ideas in the context
6. Begin with a clear topic sentence that directly addresses the question
7. End with a concluding statement that summarizes the key points`

// promptDetailRequirements extend the requirements in detail mode.
const promptDetailRequirements = `Additional requirements for detailed response:
8. Analyze multiple aspects or perspectives of the topic
9. Compare and contrast relevant information from different parts of the context
10. Provide step-by-step explanations where applicable
11. Discuss implications or consequences if relevant
12. Highlight any limitations or uncertainties in the information`

// BuildPrompt assembles the generation prompt from the question and the
// retrieved context. Context passages are re-sorted by descending score
// (defensive: retrieval already orders them), joined by newlines, and
// truncated to maxContextChars. Detail mode appends the extended
// requirement clauses. The prompt always ends with the answer cue.
func BuildPrompt(question string, results []rag.Result, requireDetail bool) string {
	sorted := append([]rag.Result(nil), results...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	parts := make([]string, 0, len(sorted))
	for _, r := range sorted {
		parts = append(parts, r.Passage.Text)
	}
	context := strings.Join(parts, "\n")
	if len(context) > maxContextChars {
		context = context[:runeFloor(context, maxContextChars)]
	}

	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n\nContext:\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(promptRequirements)
	if requireDetail {
		b.WriteString("\n")
		b.WriteString(promptDetailRequirements)
	}
	b.WriteString("\n\nDetailed Answer:")
	return b.String()
}

// runeFloor returns the largest index ≤ i that starts a rune in s.
func runeFloor(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && s[i]&0xC0 == 0x80 {
		i--
	}
	return i
}
