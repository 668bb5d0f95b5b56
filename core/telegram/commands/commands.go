package commands

// Command is a slash command. Commands carry no handler of their own: the
// router turns them into a press of Token so they share the button routes.
type Command struct {
	Token       string
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}
