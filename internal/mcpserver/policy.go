package mcpserver

// RevisionPolicy describes how take1 decides what to revise and how revised
// text is merged back, for MCP clients that call revise_text themselves.
const RevisionPolicy = `# take1 Revision Policy

take1 revises text incrementally. Each note carries ` + "`lastEditedIndex`" + `, the
byte offset that separates finalized text from text typed since the last pass.

## When a span is revised

The span is ` + "`content[lastEditedIndex:]`" + `. It is sent for revision only when

1. its trimmed form is at least 20 characters long, and
2. it ends a sentence (` + "`.`, `?` or `!`" + `, optionally followed by whitespace)
   or ends with one or more newlines.

Shorter or unfinished spans are skipped silently.

## What is sent

Only the span with surrounding whitespace removed. Preceding text may be sent
as context before the ` + "`[EDIT_START]`" + ` marker and is never revised.

## How the reply is merged

- Leading and trailing whitespace of the span are kept exactly as typed.
- A terminal ` + "`.?!`" + ` run dropped by the model is restored.
- The first letter is capitalized when the text before the span ends with
  ` + "`.`, `!` or `?`" + `.
- Text typed while the request was in flight is kept after the revised span.
- The new ` + "`lastEditedIndex`" + ` points just past the revised text.

Text before ` + "`lastEditedIndex`" + ` is never changed by a revision.
`
