package identity

import (
	"fmt"
	"strconv"
	"time"
)

// Hash field names of a stored record.
const (
	fieldID           = "id"
	fieldLoginKey     = "email"
	fieldPasswordHash = "passwordHash"
	fieldCreatedAt    = "createdAt"
	fieldIsActive     = "isActive"
)

// UserRecord is the persisted identity of a single user.
type UserRecord struct {
	ID           string
	LoginKey     string
	PasswordHash string
	CreatedAt    time.Time
	IsActive     bool
}

// fields flattens the record into HSET field/value pairs.
func (r UserRecord) fields() []any {
	return []any{
		fieldID, r.ID,
		fieldLoginKey, r.LoginKey,
		fieldPasswordHash, r.PasswordHash,
		fieldCreatedAt, r.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldIsActive, strconv.FormatBool(r.IsActive),
	}
}

func recordFromHash(values map[string]string) (UserRecord, error) {
	rec := UserRecord{
		ID:           values[fieldID],
		LoginKey:     values[fieldLoginKey],
		PasswordHash: values[fieldPasswordHash],
	}
	if rec.ID == "" || rec.LoginKey == "" || rec.PasswordHash == "" {
		return UserRecord{}, fmt.Errorf("%w: missing required field", ErrCorruptRecord)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, values[fieldCreatedAt])
	if err != nil {
		return UserRecord{}, fmt.Errorf("%w: createdAt: %v", ErrCorruptRecord, err)
	}
	rec.CreatedAt = createdAt
	// Records written without the flag are active.
	rec.IsActive = true
	if raw, ok := values[fieldIsActive]; ok {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return UserRecord{}, fmt.Errorf("%w: isActive: %v", ErrCorruptRecord, err)
		}
		rec.IsActive = active
	}
	return rec, nil
}
