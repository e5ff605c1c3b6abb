// Package atomicfile provides the replace-on-write primitive used for every
// state document.
//
// A write lands in a uniquely named temp file beside the target, the previous
// content is copied to a .backup sibling on a best-effort basis, and the temp
// file is renamed onto the target. Readers therefore observe either the old
// or the new content, never a partial write; a crash mid-write leaves only an
// inert temp file that readers never open.
package atomicfile
