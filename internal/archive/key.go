package archive

import (
	"fmt"
	"strings"
	"time"
)

const keyTimestampLayout = "2006_January_02_15:04"

// Key returns {Month}/Week_{n}/{yyyy_Month_dd_HH:mm}_{store}_{file}, where n is
// the 1-based week of the month counted in 7-day blocks from the 1st. Spaces in
// the store name become underscores; a blank store name drops the segment and
// its separator.
func Key(now time.Time, storeName, fileName string) string {
	week := (now.Day()-1)/7 + 1
	prefix := fmt.Sprintf("%s/Week_%d/%s", now.Format("January"), week, now.Format(keyTimestampLayout))
	if store := SanitizeStoreName(storeName); store != "" {
		return prefix + "_" + store + "_" + fileName
	}
	return prefix + "_" + fileName
}

// SanitizeStoreName replaces spaces with underscores.
func SanitizeStoreName(storeName string) string {
	return strings.ReplaceAll(strings.TrimSpace(storeName), " ", "_")
}

// Eligible reports whether a finalized check file is archived. Only files
// whose name starts with an upper-case D qualify.
func Eligible(fileName string) bool {
	return strings.HasPrefix(fileName, "D")
}
