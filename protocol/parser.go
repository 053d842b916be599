package protocol

import (
	"strconv"
	"strings"
)

// TrimLine strips the terminator and surrounding whitespace from a raw response.
func TrimLine(raw []byte) string {
	return strings.TrimSpace(string(raw))
}

// ParseAck requires the exact acknowledgment line.
func ParseAck(line string) error {
	if line != AckOK {
		return &AckRejectedError{Raw: line}
	}
	return nil
}

// ParseIndex parses a small non-negative integer response.
func ParseIndex(line string) (int, error) {
	if line == "" {
		return 0, &ParseError{Raw: line, Reason: "empty index"}
	}
	for i := 0; i < len(line); i++ {
		if line[i] < '0' || line[i] > '9' {
			return 0, &ParseError{Raw: line, Reason: "index is not a non-negative integer"}
		}
	}
	n, err := strconv.Atoi(line)
	if err != nil {
		return 0, &ParseError{Raw: line, Reason: err.Error()}
	}
	return n, nil
}

// ParsePlain validates a plain string response.
func ParsePlain(line string) (string, error) {
	if line == "" {
		return "", &ParseError{Raw: line, Reason: "empty response"}
	}
	return line, nil
}
