package protocol

import "fmt"

var helpEntries = []struct{ name, usage string }{
	{"ls", "view all files from current directory"},
	{"mkdir", "create directory, format : mkdir new_directory"},
	{"touch", "create file, format : touch new_file"},
	{"cd", "change directory, format : cd ~ | .. | new_path"},
	{"rm", "remove file / directory, format : rm file | directory"},
	{"copy", "copy file / directory, format : copy source destination"},
	{"cat", "print a text file, format : cat file"},
	{"changenick", "change user nick, format : changenick new_nick"},
}

// HelpLines returns the --help listing, one command per line.
func HelpLines() []string {
	lines := make([]string, len(helpEntries))
	for i, h := range helpEntries {
		lines[i] = fmt.Sprintf("\t%-11s %s", h.name, h.usage)
	}
	return lines
}
