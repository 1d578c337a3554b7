package migrate

import (
	"fmt"
	"strings"
)

// terminalConfirmer prompts on the operator's terminal. Anything other than
// an explicit yes is a decline.
type terminalConfirmer struct{}

func (terminalConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Printf("%s (y/N) ", prompt)

	var response string
	num, err := fmt.Scanln(&response)
	if err != nil || num != 1 {
		return false, nil
	}

	response = strings.ToLower(response)
	return response == "y" || response == "yes", nil
}

// autoConfirmer answers yes to every gate, but still prints the prompt so
// scripted runs leave a record of what was waved through.
type autoConfirmer struct{}

func (autoConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Printf("%s (auto-confirmed)\n", prompt)
	return true, nil
}
