// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import "text/template"

// Mode selects the rewrite template.
type Mode string

// Enhancement modes.
const (
	ModeGeneric  Mode = "generic"
	ModeCodeRAG  Mode = "code-rag"
	ModeObsidian Mode = "obsidian"
)

// Modes lists the supported modes in display order.
var Modes = []Mode{ModeGeneric, ModeCodeRAG, ModeObsidian}

const genericTemplate = `Rewrite the search query below so that it retrieves better passages from a document index.
Keep the original intent. Add the terms, synonyms and specifics a relevant passage would contain.
Reply with the rewritten query only, on one line.

Query: {{.Query}}
Rewritten query:`

const codeRAGTemplate = `Rewrite the question below for semantic search over a source code repository.
Name the likely identifiers, packages, file types and patterns an answer would touch.
Say what kind of answer is wanted: a definition, a call site, a usage example or an explanation.
Reply with the rewritten query only.

Question: {{.Query}}
Rewritten query:`

const obsidianTemplate = `Rewrite the question below for search over a personal Markdown note vault.
Think of the note titles, tags, headings and linked concepts that would hold the answer.
Reply with the rewritten query only, on one line.

Question: {{.Query}}
Rewritten query:`

var templates = map[Mode]*template.Template{
	ModeGeneric:  template.Must(template.New(string(ModeGeneric)).Parse(genericTemplate)),
	ModeCodeRAG:  template.Must(template.New(string(ModeCodeRAG)).Parse(codeRAGTemplate)),
	ModeObsidian: template.Must(template.New(string(ModeObsidian)).Parse(obsidianTemplate)),
}
