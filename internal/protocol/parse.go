// Package protocol implements the filesh command protocol: a raw client
// line is parsed into a name and arguments, validated against a fixed
// arity table into a Command, and dispatched against the session and
// the shared storage engine.  Every line yields zero or more response
// lines followed by a prompt.
package protocol

import "strings"

// Parse splits line on whitespace.  An empty or blank line yields an
// empty name, which Validate rejects as an unknown command.
func Parse(line string) (name string, args []string) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return "", nil
	}
	return tokens[0], tokens[1:]
}
