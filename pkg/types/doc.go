// Package types contains the shared data model and error taxonomy for the
// link archive: the persisted Link record, ephemeral text chunks, search
// results, and the content-addressed id derivation.
//
// The Link struct mirrors the relational `links` table exactly. Field names
// and column types are a compatibility contract with existing data and must
// not drift.
package types
