package utils

import (
	"crypto/sha256"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// GetMessageHash returns the SHA256 hash of the message
func GetMessageHash(msgBytes []byte) []byte {
	hash := sha256.Sum256(msgBytes)
	return hash[:]
}

// ZerologConsoleWriter returns a human readable zerolog writer on out
func ZerologConsoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// MaskString keeps the first and last character of s and stars the rest
func MaskString(s string) string {
	if len(s) <= 2 {
		return s
	}
	return s[:1] + strings.Repeat("*", len(s)-2) + s[len(s)-1:]
}
