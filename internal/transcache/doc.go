// Package transcache is a SQLite translation memory keyed by language pair
// and source text.
//
// The batcher consults it before calling the translation service so a re-run
// over the same subtitles sends only units it has not seen. Entries are never
// expired; `subtrans cache clear` empties the table. The schema is versioned
// and a mismatch is reported as ErrSchemaMismatch instead of being migrated.
package transcache
