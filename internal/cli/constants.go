package cli

// Output layout.
const (
	// MaxDescriptionLength is the maximum length of a cask description in search results.
	MaxDescriptionLength = 50
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
)

// Number of arguments expected by the config set command.
const setCommandArgs = 2
