package store

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "memoria/pkg/domain-errors"
)

// encodeCursor packs the FIFO position (created_at, id) of the last item on a
// page into an opaque token.
func encodeCursor(createdAt time.Time, id uuid.UUID) string {
	raw := fmt.Sprintf("%d|%s", createdAt.UnixNano(), id)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "malformed cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "malformed cursor")
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "malformed cursor")
	}
	return time.Unix(0, nanos), id, nil
}
