package cli

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

// promptAttempts bounds every interactive prompt. Invalid input retries
// the question; it never recurses.
const promptAttempts = 3

var errNoValidInput = errors.New("no valid input after repeated attempts")

// ParsePort validates a port entered at a prompt.
func ParsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid port number %q", raw)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range", port)
	}
	return port, nil
}

// ParseAddress validates a host entered at a prompt; anything that
// resolves is acceptable.
func ParseAddress(raw string) (string, error) {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", errors.New("empty address")
	}
	if _, err := net.ResolveIPAddr("ip", addr); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return addr, nil
}

func promptPort(label string) (int, error) {
	for attempt := 0; attempt < promptAttempts; attempt++ {
		raw, err := pterm.DefaultInteractiveTextInput.Show(label)
		if err != nil {
			return 0, err
		}
		port, err := ParsePort(raw)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		return port, nil
	}
	return 0, errNoValidInput
}

func promptAddress(label string) (string, error) {
	for attempt := 0; attempt < promptAttempts; attempt++ {
		raw, err := pterm.DefaultInteractiveTextInput.Show(label)
		if err != nil {
			return "", err
		}
		addr, err := ParseAddress(raw)
		if err != nil {
			pterm.Error.Println(err)
			continue
		}
		return addr, nil
	}
	return "", errNoValidInput
}

func promptFileChoice(names []string) (string, error) {
	return pterm.DefaultInteractiveSelect.
		WithOptions(names).
		WithDefaultText("Select a file").
		Show()
}
