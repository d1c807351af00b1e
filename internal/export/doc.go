// Package export renders notes for use outside the dashboard: Markdown files
// with YAML front matter, ZIP bundles of those files, PDFs, and clipboard
// text.
package export
