package mcpserver

// RecordFormatContract describes the canonical record format that LLM
// consumers should follow when writing memories.
const RecordFormatContract = `# Othala Record Format Contract

Every record stored in Othala follows this structure.

## Identity

- A record id is ` + "`" + `{category}/{slug}` + "`" + ` (no ` + "`" + `.md` + "`" + ` extension in the id).
- The slug is derived from the title once, at creation: lowercase, runs of
  non-alphanumerics become hyphens, truncated to 60 characters, plus a
  4-hex-digit suffix of the original title so renamed-but-similar titles
  never collide.
- Writing the same title in the same category again REPLACES the record.
  Metadata is rebuilt from the write arguments (the original creation date
  survives); the body is replaced.

## Categories

Default categories: ` + "`" + `decisions` + "`" + `, ` + "`" + `people` + "`" + `, ` + "`" + `commitments` + "`" + `, ` + "`" + `action_required` + "`" + `.
Writes to any other category are rejected.

People are special:
- Title people as ` + "`" + `Name — Role` + "`" + ` (em dash). The slug comes from the name
  part only, so "Jake Oshea — Engineer" and "Jake Oshea — Manager" are the
  same person record.
- The singleton ` + "`" + `me` + "`" + ` record uses the bare slug ` + "`" + `people/me` + "`" + `.
- People carry contact fields (role, organization, email, phone, location,
  timezone) instead of task fields.

## Structure

` + "```" + `markdown
---
title: Follow up with Jake Oshea
date: 2026-08-20
updated: 2026-08-23
category: commitments
priority: 🟡
tags: []
related_to:
  - Jake Oshea
---

# Follow up with Jake Oshea

**Related:** [[Jake Oshea]]

Body text in standard Markdown.
` + "```" + `

## Relations

- ` + "`" + `related_to` + "`" + ` entries are ids, exact titles, or title fragments of other
  records. On every write the whole graph is rebuilt: each reference that
  resolves becomes a relates-to edge plus a reverse backlink edge, and the
  linked title is folded back into the other record's ` + "`" + `related_to` + "`" + ` list.
- ` + "`" + `derived_from` + "`" + ` marks provenance and produces derived-from plus
  referenced-by edges the same way.
- References that do not resolve yet are kept in the metadata and simply
  produce no edge until the referenced record exists.

## Rules

1. Categories, field keys, and ids are English; values and bodies may use
   any language.
2. Dates are ISO-8601 (` + "`" + `YYYY-MM-DD` + "`" + `).
3. Use ` + "`" + `[[wikilinks]]` + "`" + ` in bodies to reference records by title.
4. Priority markers: 🔴 urgent, 🟡 normal (default), 🟢 low.
`
