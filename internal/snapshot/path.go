// Package snapshot derives stable object paths for raw markup snapshots.
// The concrete stores live in the subpackages memory, local and gcs.
package snapshot

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/insightforge/webintel/internal/hash/sha256"
)

var hasher = sha256.New()

// ObjectPath builds the storage path for one snapshot: the configured
// prefix, the page's hostname and the content digest. Identical markup
// for the same host maps to the same object.
func ObjectPath(prefix, pageURL string, markup []byte) string {
	host := "unknown"
	if u, err := url.Parse(pageURL); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	if prefix == "" {
		prefix = "pages"
	}
	return fmt.Sprintf("%s/%s/%s.html", strings.Trim(prefix, "/"), host, hasher.Hash(markup))
}
