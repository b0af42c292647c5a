package models

const (
	ParagraphRegex   = `\n[ \t\r]*\n`
	ThinkTag         = `(?s)<think>.*?</think>`
	ContextSeparator = "---"
	TagSeparator     = ","

	DefaultLinkBase = "https://example.local/activities"
)

// record metadata keys shared by every vector store adapter
const (
	MetaSourceCode = "source_code"
	MetaSection    = "section"
	MetaTags       = "tags"
	MetaLink       = "link"
	MetaText       = "text"
	MetaModel      = "embedding_model"
)

var (
	// SystemConstraint is handed to the generation step together with the grounding context.
	SystemConstraint = `You are a helpful assistant for a Parks & Rec department.
Use ONLY the provided context to answer the user's question concisely.
If the context is insufficient to answer, say so and ask a focused follow-up question.
When you cite, use the Source links from the context inline.`

	NoContextNotice = "No sources matched the question."
)
