package models

import "strings"

// CommandType enumerates the manager commands accepted over WhatsApp.
type CommandType string

const (
	CommandApprove     CommandType = "approve"
	CommandReject      CommandType = "reject"
	CommandApproveFeed CommandType = "approvefeed"
	CommandRejectFeed  CommandType = "rejectfeed"
	CommandSales       CommandType = "sales"
	CommandStock       CommandType = "stock"
	CommandHelp        CommandType = "help"
	CommandUnknown     CommandType = "unknown"
)

var knownCommands = map[string]CommandType{
	string(CommandApprove):     CommandApprove,
	string(CommandReject):      CommandReject,
	string(CommandApproveFeed): CommandApproveFeed,
	string(CommandRejectFeed):  CommandRejectFeed,
	string(CommandSales):       CommandSales,
	string(CommandStock):       CommandStock,
	string(CommandHelp):        CommandHelp,
}

// Command represents a parsed manager instruction extracted from WhatsApp text.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from free-form text. Arguments keep their case
// so ids and rejection reasons survive intact.
func ParseCommand(message string) Command {
	tokens := strings.Fields(strings.TrimSpace(message))
	cmd := Command{Type: CommandUnknown, Raw: message}
	if len(tokens) == 0 {
		return cmd
	}

	head := strings.ToLower(strings.TrimPrefix(tokens[0], "/"))
	if t, ok := knownCommands[head]; ok {
		cmd.Type = t
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
