package schedule

import (
	"encoding/base64"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"service-availability/internal/domain"
)

var ErrBadToken = errors.New("malformed availability token")

// Fingerprint hashes the inputs a date resolution depends on: every rule's
// identity and last write, plus the override's identity and version. Any
// mutation touching the date therefore changes the fingerprint, which is what
// turns a stale slot index into an explicit conflict.
func Fingerprint(rules []domain.RecurringRule, override *domain.DateOverride) uint64 {
	h := fnv.New64a()
	for _, rule := range sortByInsertion(rules) {
		h.Write(rule.ID[:])
		fmt.Fprintf(h, "%d|", rule.UpdatedAt.UnixNano())
	}
	if override != nil {
		h.Write(override.ID[:])
		fmt.Fprintf(h, "%d", override.Version)
	}
	return h.Sum64()
}

// EncodeToken packs a resolved day's address and fingerprint into the opaque
// availability id returned to callers.
func EncodeToken(doctorID uuid.UUID, date domain.Date, fingerprint uint64) string {
	raw := fmt.Sprintf("%s|%s|%016x", doctorID, date, fingerprint)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeToken is the inverse of EncodeToken.
func DecodeToken(token string) (uuid.UUID, domain.Date, uint64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return uuid.Nil, domain.Date{}, 0, ErrBadToken
	}
	parts := strings.Split(string(raw), "|")
	if len(parts) != 3 {
		return uuid.Nil, domain.Date{}, 0, ErrBadToken
	}
	doctorID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, domain.Date{}, 0, ErrBadToken
	}
	date, err := domain.ParseDate(parts[1])
	if err != nil {
		return uuid.Nil, domain.Date{}, 0, ErrBadToken
	}
	fingerprint, err := strconv.ParseUint(parts[2], 16, 64)
	if err != nil {
		return uuid.Nil, domain.Date{}, 0, ErrBadToken
	}
	return doctorID, date, fingerprint, nil
}
