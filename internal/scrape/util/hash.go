package util

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashString is a short stable hex digest.
func HashString(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

// DedupKey identifies a listing within one source: "<site>-<nativeID>", or
// "<site>-u<hash of canonical URL>" when the source has no native id.
func DedupKey(site, nativeID, rawURL string) string {
	if id := strings.TrimSpace(nativeID); id != "" {
		return site + "-" + id
	}
	canon := CanonicalURL(rawURL)
	if canon == "" {
		return ""
	}
	return site + "-u" + HashString(canon)
}
