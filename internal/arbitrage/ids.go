package arbitrage

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace scopes the name-based UUIDs of groups and opportunities.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/alanyoungcy/crossarb"))

// stableID derives a deterministic UUID from the given parts so that the same
// input always yields the same group and opportunity identifiers.
func stableID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "|"))).String()
}
