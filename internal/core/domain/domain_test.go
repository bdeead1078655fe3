package domain

import (
	"errors"
	"testing"
)

func TestCard_MaskedNumber(t *testing.T) {
	c := &Card{PANLast4: Last4("4111111111111111")}
	if got := c.MaskedNumber(); got != "**** **** **** 1111" {
		t.Fatalf("unexpected mask: %q", got)
	}
}

func TestLast4(t *testing.T) {
	cases := map[string]string{
		"4111111111111234": "1234",
		"123":              "123",
		"":                 "",
		"ab-çdéf":          "çdéf",
	}
	for in, want := range cases {
		if got := Last4(in); got != want {
			t.Errorf("Last4(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseCardStatus(t *testing.T) {
	for _, st := range CardStatuses {
		got, err := ParseCardStatus(string(st))
		if err != nil || got != st {
			t.Fatalf("ParseCardStatus(%q) = %q, %v", st, got, err)
		}
	}
	if _, err := ParseCardStatus("active"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for lowercase status, got %v", err)
	}
}

func TestParseRoles(t *testing.T) {
	roles, err := ParseRoles([]string{"USER", "ADMIN", "USER"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected duplicates removed, got %v", roles)
	}

	if _, err := ParseRoles(nil); !errors.Is(err, ErrInvalidRoles) {
		t.Fatalf("expected ErrInvalidRoles for empty set, got %v", err)
	}
	if _, err := ParseRoles([]string{"ROOT"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown role, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrCardNotFound, ErrNotFound},
		{ErrUserNotFound, ErrNotFound},
		{ErrNonPositiveAmount, ErrInvalidArgument},
		{ErrSameCard, ErrInvalidArgument},
		{ErrAmountScale, ErrInvalidArgument},
		{ErrCardInactive, ErrInvalidState},
		{ErrInsufficientFunds, ErrInvalidState},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.kind) {
			t.Errorf("%v does not wrap %v", tc.err, tc.kind)
		}
	}
	if errors.Is(ErrInsufficientFunds, ErrInvalidArgument) {
		t.Error("insufficient funds must not be an invalid argument")
	}
}

func TestPageRequest_Normalize(t *testing.T) {
	p := PageRequest{Page: 0, Limit: 500}.Normalize()
	if p.Page != 1 || p.Limit != MaxPageLimit {
		t.Fatalf("unexpected normalized page: %+v", p)
	}
	p = PageRequest{Page: 3, Limit: 0}.Normalize()
	if p.Limit != DefaultPageLimit || p.Offset() != 2*DefaultPageLimit {
		t.Fatalf("unexpected defaults: %+v offset=%d", p, p.Offset())
	}
}

func TestNewCardPage_TotalPages(t *testing.T) {
	page := NewCardPage(nil, 41, PageRequest{Page: 1, Limit: 20})
	if page.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", page.TotalPages)
	}
	if page.Items == nil {
		t.Fatal("items must never be nil")
	}
}
