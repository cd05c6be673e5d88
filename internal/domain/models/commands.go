package models

import "strings"

// CommandType enumerates the field commands accepted over WhatsApp.
type CommandType string

const (
	CommandEggs      CommandType = "eggs"
	CommandMortality CommandType = "mortality"
	CommandVaccines  CommandType = "vaccines"
	CommandSummary   CommandType = "summary"
	CommandHelp      CommandType = "help"
	CommandUnknown   CommandType = "unknown"
)

// Command represents a parsed worker instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from a message such as "/eggs B1 120 100 2". The leading slash is
// optional and the keyword is case-insensitive; arguments keep their case.
func ParseCommand(message string) Command {
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(message)
	if len(tokens) == 0 {
		return cmd
	}

	switch head := CommandType(strings.ToLower(strings.TrimPrefix(tokens[0], "/"))); head {
	case CommandEggs, CommandMortality, CommandVaccines, CommandSummary, CommandHelp:
		cmd.Type = head
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}
