package mcpserver

// NoteLogContract describes the note log conventions that LLM consumers
// must follow when adding or editing note entries.
const NoteLogContract = `# Othala Note Log Contract

Each contact carries a single free-text notes field that Othala treats as a
structured log of timestamped entries.

## Structure

` + "```" + `
[2025-01-20T14:30:00.000Z]
Most recent entry text.

[2025-01-15T09:00:00.000Z]
Older entry text,
which may span several lines.

Legacy text without a tag is one untagged entry.
` + "```" + `

## Rules

1. **Timestamp tags** are the entry delimiters: ` + "`" + `[YYYY-MM-DDTHH:MM:SS.mmmZ]` + "`" + `
   on its own line, always UTC. Never write a bracketed timestamp inside
   entry text; it would split the entry.
2. **Newest first.** New entries are prepended at the top of the field.
   Use the ` + "`" + `add_note` + "`" + ` tool; it assigns the tag for you.
3. **Edits target a tag.** To change an existing entry, call ` + "`" + `edit_note` + "`" + `
   with the exact tag string (brackets included) taken from ` + "`" + `read_notes` + "`" + `.
   Only that entry's text is replaced.
4. **Untagged preamble.** Text before the first tag is legacy content from
   before the convention. It is readable but not addressable for edits.

## Inline markup

Entry text may use a small inline subset (no block elements):

- ` + "`" + `**bold**` + "`" + ` or ` + "`" + `__bold__` + "`" + `
- ` + "`" + `*italic*` + "`" + ` (single asterisks, must stay on one line)
- ` + "`" + `_underline_` + "`" + ` (single underscores, must stay on one line)
- ` + "`" + `~~strikethrough~~` + "`" + `
- ` + "`" + `[label](https://example.com)` + "`" + ` for links; links never nest
- ` + "`" + `# Heading` + "`" + ` renders the whole line bold

Markup never spans line breaks. Anything else is plain text.

## Example

` + "```" + `
[2025-01-20T14:30:00.000Z]
Called about the **renewal**. Follow up [here](https://crm.example/t/42).

[2025-01-12T08:15:00.000Z]
# First meeting
Introduced by _Dana_. Prefers email over phone.
` + "```" + `
`
