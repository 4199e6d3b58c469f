// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package oracle

// systemPrompt frames the backend as a strict JSON classifier.
const systemPrompt = `You organize a user's personal notes. You decide whether a new piece of text belongs in one of the user's existing notes or deserves a new note. You answer with exactly one JSON object and nothing else.`

// classificationPromptTemplate renders the note text and existing digests.
// Digest fields are emitted with printf %q so quotes and newlines in user
// content cannot break the prompt structure.
const classificationPromptTemplate = `Existing notes ({{len .Existing}}):
{{- if .Existing}}
{{- range $i, $n := .Existing}}
{{$i | inc}}. title: {{printf "%q" $n.Title}} summary: {{printf "%q" $n.Summary}}
{{- end}}
{{- else}}
(none)
{{- end}}

New text:
{{printf "%q" .NoteText}}

Respond with a JSON object with these fields:
  "action": "merge" if the new text extends one existing note, otherwise "create"
  "title": the title of the note the text ends up in (for a merge, the existing title)
  "merge_with": the exact title of the existing note to merge into, or null when creating
  "summary": a one or two sentence summary of the resulting note
  "tags": a short list of lowercase topic tags
  "reasoning": one sentence explaining the decision

Only merge when the existing note is clearly about the same subject. Copy merge_with exactly from the list above.`
