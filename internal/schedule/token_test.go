package schedule

import (
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"service-availability/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	date := domain.NewDate(2026, time.September, 7)
	rules := []domain.RecurringRule{
		weekdayRule(t, []int{1}, "09:00", "11:00", 30),
	}
	fingerprint := Fingerprint(rules, nil)

	token := EncodeToken(testDoctorID, date, fingerprint)
	gotDoctor, gotDate, gotFingerprint, err := DecodeToken(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if gotDoctor != testDoctorID {
		t.Errorf("doctor = %s, want %s", gotDoctor, testDoctorID)
	}
	if gotDate != date {
		t.Errorf("date = %s, want %s", gotDate, date)
	}
	if gotFingerprint != fingerprint {
		t.Errorf("fingerprint = %x, want %x", gotFingerprint, fingerprint)
	}
}

func TestDecodeTokenMalformed(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"not base64", "%%%"},
		{"too few parts", base64.RawURLEncoding.EncodeToString([]byte("just-one-part"))},
		{"bad uuid", base64.RawURLEncoding.EncodeToString([]byte("nope|2026-09-07|00000000000000ff"))},
		{"bad date", base64.RawURLEncoding.EncodeToString([]byte(testDoctorID.String() + "|yesterday|00000000000000ff"))},
		{"bad fingerprint", base64.RawURLEncoding.EncodeToString([]byte(testDoctorID.String() + "|2026-09-07|zz"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, _, err := DecodeToken(tc.token); !errors.Is(err, ErrBadToken) {
				t.Fatalf("err = %v, want ErrBadToken", err)
			}
		})
	}
}

func TestFingerprintChangesWithInputs(t *testing.T) {
	rule := weekdayRule(t, []int{1}, "09:00", "11:00", 30)
	base := Fingerprint([]domain.RecurringRule{rule}, nil)

	touched := rule
	touched.UpdatedAt = rule.UpdatedAt.Add(time.Minute)
	if Fingerprint([]domain.RecurringRule{touched}, nil) == base {
		t.Error("rule update did not change fingerprint")
	}

	override := &domain.DateOverride{ID: uuid.New(), Version: 1}
	withOverride := Fingerprint([]domain.RecurringRule{rule}, override)
	if withOverride == base {
		t.Error("adding an override did not change fingerprint")
	}

	bumped := *override
	bumped.Version = 2
	if Fingerprint([]domain.RecurringRule{rule}, &bumped) == withOverride {
		t.Error("override version bump did not change fingerprint")
	}
}

func TestFingerprintOrderInsensitive(t *testing.T) {
	a := weekdayRule(t, []int{1}, "09:00", "10:00", 30)
	b := weekdayRule(t, []int{2}, "12:00", "13:00", 30)
	b.CreatedAt = a.CreatedAt.Add(time.Hour)

	forward := Fingerprint([]domain.RecurringRule{a, b}, nil)
	backward := Fingerprint([]domain.RecurringRule{b, a}, nil)
	if forward != backward {
		t.Fatalf("fingerprint depends on input order")
	}
}
