package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID returns an id of the form user_<unix-millis>_<32 hex chars>. The
// random part is a UUIDv4, so collisions are negligible; Create still rejects
// an id that is already taken.
func NewID(now time.Time) (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("identity: generate id: %w", err)
	}
	return fmt.Sprintf("user_%d_%s", now.UnixMilli(), strings.ReplaceAll(u.String(), "-", "")), nil
}
