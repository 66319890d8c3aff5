// Package cli implements the gophvault command line: a cobra command tree for
// one-shot use and an interactive shell that keeps the vault unlocked between
// commands.
//
// Passphrases are read without echo through golang.org/x/term. Payloads are
// entered per kind:
//
//	password  username, password (hidden) and URL, stored as an object
//	note      multi-line text, stored as a string
//	file      a file path; name and base64 content are stored as an object
package cli
