package mcpserver

// Guide explains the data model and tool semantics to LLM clients.
const Guide = `# Academic World Guide

The explorer joins three stores:

- a graph of faculty members and the publications they authored,
- a relational database of publications, universities and review state,
- a document store of free-text notes about faculty members.

## Faculty

Faculty members are identified by their exact display name. Use ` + "`list_faculty`" + `
to get valid names; every other tool expects one of them verbatim.

## Co-authors

` + "`top_coauthors`" + ` counts the distinct publications a collaborator shares with the
selected faculty member. Ties are ordered by name. The faculty member never
appears in their own ranking. ` + "`limit`" + ` must be at least 1.

## Reviews

` + "`mark_reviewed`" + ` records a publication as reviewed. Each publication has at most
one review record. The record belongs to the publication's author with the
lowest faculty id, which may not be the faculty member you passed in. The tool
returns the reviewed ids of the faculty member you passed in, so a paper owned
by a co-author will not show up there. Marking the same paper again refreshes
its review time. Publications without authors cannot be reviewed.

## Notes

` + "`add_note`" + ` trims the text. Blank text is not stored and reports status
` + "`noop`" + `. Notes are returned newest first with server-assigned UTC times.

## Failures

` + "`faculty_view`" + ` never fails as a whole. If a store is unreachable the affected
fields are empty and the ` + "`failures`" + ` list says which store and operation failed.
`
