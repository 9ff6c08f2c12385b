package utils

import (
	"fmt"
	"strings"
)

// FormatUserMention formats a user ID as a Discord mention.
func FormatUserMention(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// IsUserMention checks whether a command argument is a user mention token.
func IsUserMention(text string) bool {
	return strings.HasPrefix(text, "<@") && strings.HasSuffix(text, ">")
}

// ExtractUserIDFromMention extracts the user ID from a mention token,
// tolerating the legacy nickname form <@!id>.
func ExtractUserIDFromMention(mention string) string {
	userID := strings.TrimPrefix(mention, "<@")
	userID = strings.TrimSuffix(userID, ">")
	return strings.TrimPrefix(userID, "!")
}
