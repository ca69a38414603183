// Package content holds the data model persisted by the cache: the
// (contentId, minor, commitId) identifier, the info and version blocks, the
// named component maps and the status code. Types here are plain values with
// JSON tags; they know nothing about storage layout or encoding frames, which
// live in the cache package.
package content
