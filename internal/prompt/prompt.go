// Copyright 2025 Alan Matykiewicz
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the
// Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package prompt assembles the grounding prompt handed to the
// generation model.
package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/alan-mat/askdoc/internal/api"
)

const answerPromptTemplate = `Answer the question using only the documents below. Do not guess at information that is not contained in them.

Documents:
{{.Context}}

Question: {{.Question}}

Answer:`

type Builder struct {
	tmpl *template.Template
}

func NewBuilder() *Builder {
	return &Builder{
		tmpl: template.Must(template.New("answerPrompt").Parse(answerPromptTemplate)),
	}
}

// Build concatenates the documents in the order given, each prefixed
// with a 1-based index and its title. Deterministic for the same
// inputs; documents are never reordered, deduplicated or truncated.
func (b *Builder) Build(question string, docs []*api.Document) string {
	var context strings.Builder
	for i, d := range docs {
		if i > 0 {
			context.WriteString("\n\n")
		}
		fmt.Fprintf(&context, "[Document %d: %s]\n%s", i+1, d.Title, d.Content)
	}

	type templatePayload struct {
		Context  string
		Question string
	}
	tp := templatePayload{
		Context:  context.String(),
		Question: question,
	}

	var buf bytes.Buffer
	// the template is static and executes over plain strings
	_ = b.tmpl.Execute(&buf, tp)
	return buf.String()
}
