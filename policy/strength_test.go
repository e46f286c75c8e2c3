package policy

import (
	"errors"
	"testing"
)

func TestStrengthPolicy(t *testing.T) {
	p := NewStrengthPolicy(DefaultStrengthConfig())

	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{name: "valid", password: "Correct#Horse9", ok: true},
		{name: "too short", password: "Sh0rt#pw", ok: false},
		{name: "no upper", password: "correct#horse9", ok: false},
		{name: "no lower", password: "CORRECT#HORSE9", ok: false},
		{name: "no digit", password: "Correct#Horsey", ok: false},
		{name: "no special", password: "CorrectHorse99", ok: false},
	}
	for _, tc := range cases {
		err := p.Check(tc.password)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("%s: expected ErrWeakPassword, got %v", tc.name, err)
		}
	}
}

func TestValidEmail(t *testing.T) {
	if !ValidEmail("alice@example.com") {
		t.Fatal("expected valid email")
	}
	for _, bad := range []string{"", "alice", "alice@", "@example.com", "alice@example"} {
		if ValidEmail(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
