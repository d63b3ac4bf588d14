package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/rag"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/tools"
)

const basePrompt = `You are a helpful assistant on a chat platform. Keep answers concise and conversational; chat messages are read on small screens. Answer in the language the user writes in.`

const fallbackMessage = `Sorry, something went wrong while preparing a reply. Please try again in a moment.`

// capabilityPrompt renders the live tool catalog into the system prompt
// so the model's tool awareness always matches the registry.
func capabilityPrompt(infos []tools.ToolInfo) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nYou have access to the following tools. Use them whenever they produce a more accurate answer than recall:\n")
	for _, info := range infos {
		fmt.Fprintf(&b, "- %s: %s\n", info.Name, info.Description)
	}
	b.WriteString("\nCall a tool rather than guessing at calculations, current conditions, or generated identifiers.")
	return b.String()
}

// metaSummary answers "what can you do" without an LLM round trip.
func metaSummary(infos []tools.ToolInfo, retrievalEnabled bool) string {
	var b strings.Builder
	b.WriteString("Here's what I can do:\n")
	for _, info := range infos {
		fmt.Fprintf(&b, "• %s: %s\n", info.Name, info.Description)
	}
	if retrievalEnabled {
		b.WriteString("• document answers: send me a PDF, Word, Excel, or text file and ask questions about it\n")
	}
	b.WriteString("\nJust ask in plain language and I'll pick the right capability.")
	return b.String()
}

// retrievalPrompt embeds retrieved snippets with provenance so the model
// can ground and attribute its answer.
func retrievalPrompt(results []rag.SearchResult) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nUse the following retrieved context when it is relevant. If the context does not cover the question, say so instead of inventing details.\n")
	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, provenance(r), r.Content)
	}
	return b.String()
}

func provenance(r rag.SearchResult) string {
	label := "knowledge base"
	if r.Source == rag.SourceDocument {
		label = "document"
		if title, ok := r.Metadata["title"].(string); ok && title != "" {
			label = fmt.Sprintf("document %q", title)
		} else if fn, ok := r.Metadata["filename"].(string); ok && fn != "" {
			label = fmt.Sprintf("document %q", fn)
		}
	}
	return fmt.Sprintf("source: %s, similarity: %.2f", label, r.Similarity)
}

// provenanceFootnote is the best-effort context note appended on the
// hybrid path.
func provenanceFootnote(results []rag.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	labels := make([]string, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		l := provenance(r)
		if !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	return "\n\n_Related context: " + strings.Join(labels, "; ") + "_"
}

// toolUsageSummary annotates a response with which tools ran, name
// deduplicated with call counts.
func toolUsageSummary(results []tools.ToolResult) string {
	if len(results) == 0 {
		return ""
	}
	counts := make(map[string]int)
	for _, r := range results {
		counts[r.ToolName]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		if n := counts[name]; n > 1 {
			parts = append(parts, fmt.Sprintf("%s ×%d", name, n))
		} else {
			parts = append(parts, name)
		}
	}
	return "\n\n_Used: " + strings.Join(parts, ", ") + "_"
}
