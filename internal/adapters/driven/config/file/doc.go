// Package file provides the on-disk configuration adapters: a TOML settings
// store and a directory of user-editable prompt templates, both rooted at
// ~/.sercha-music by default.
package file
