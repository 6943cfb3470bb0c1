package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		saved, goal int64
		want        int
	}{
		{0, 0, 0},
		{500, 0, 0},
		{0, 1000, 0},
		{250, 1000, 25},
		{1, 3, 33},
		{2, 3, 67},
		{1, 200, 1}, // 0.5 rounds up
		{1000, 1000, 100},
		{5000, 1000, 100},
		{-10, 1000, 0},
		{10, -1000, 0},
	}
	for _, tc := range cases {
		got := ProgressPercent(Rupees(tc.saved), Rupees(tc.goal))
		if got != tc.want {
			t.Errorf("ProgressPercent(%d, %d) = %d, want %d", tc.saved, tc.goal, got, tc.want)
		}
	}
}

func TestProgressPercentMonotonic(t *testing.T) {
	goal := Rupees(777)
	prev := 0
	for saved := int64(0); saved <= 1000; saved += 7 {
		p := ProgressPercent(Rupees(saved), goal)
		if p < prev {
			t.Fatalf("progress decreased at saved=%d: %d < %d", saved, p, prev)
		}
		if p < 0 || p > 100 {
			t.Fatalf("progress out of range at saved=%d: %d", saved, p)
		}
		if saved >= 777 && p != 100 {
			t.Fatalf("saved >= goal must be 100, got %d", p)
		}
		if again := ProgressPercent(Rupees(saved), goal); again != p {
			t.Fatalf("not idempotent: %d vs %d", again, p)
		}
		prev = p
	}
}

func TestLedgerPatchApplyMerges(t *testing.T) {
	base := LedgerEntry{
		Date:     "2024-05-01",
		Income:   Rupees(900),
		Hours:    decimal.NewFromInt(6),
		Platform: "Swiggy",
		Expenses: map[string]Money{"fuel": Rupees(120), "food": Rupees(80)},
		Note:     "rain",
	}
	food := Rupees(60)
	platform := "Zomato"
	patch := LedgerPatch{
		Platform: &platform,
		Expenses: map[string]Money{"food": food, "toll": Rupees(40)},
	}
	got := patch.Apply(base)

	if got.Income != base.Income || !got.Hours.Equal(base.Hours) || got.Note != "rain" {
		t.Fatalf("untouched fields changed: %+v", got)
	}
	if got.Platform != "Zomato" {
		t.Errorf("platform = %q", got.Platform)
	}
	want := map[string]Money{"fuel": Rupees(120), "food": food, "toll": Rupees(40)}
	for k, v := range want {
		if got.Expenses[k] != v {
			t.Errorf("expenses[%s] = %v, want %v", k, got.Expenses[k], v)
		}
	}
	if base.Expenses["food"] != Rupees(80) {
		t.Fatal("Apply mutated the base expense map")
	}
	if got.TotalExpenses() != Rupees(220) || got.Profit() != Rupees(680) {
		t.Errorf("totals = %v / %v", got.TotalExpenses(), got.Profit())
	}
}

func TestLedgerPatchValidate(t *testing.T) {
	neg := Money{Cents: -1}
	tooMany := decimal.NewFromInt(25)
	long := string(make([]byte, 600))
	cases := []struct {
		name  string
		patch LedgerPatch
		err   error
	}{
		{"empty", LedgerPatch{}, nil},
		{"negative income", LedgerPatch{Income: &neg}, ErrNegativeAmount},
		{"hours over a day", LedgerPatch{Hours: &tooMany}, ErrInvalidHours},
		{"blank category", LedgerPatch{Expenses: map[string]Money{" ": Rupees(1)}}, ErrEmptyCategory},
		{"negative expense", LedgerPatch{Expenses: map[string]Money{"fuel": neg}}, ErrNegativeAmount},
		{"long note", LedgerPatch{Note: &long}, ErrTextTooLong},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate()
			if tc.err == nil && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("got %v, want %v", err, tc.err)
			}
		})
	}
}

func TestInvestmentValidate(t *testing.T) {
	inv := Investment{Name: "SBI - Regular FD", MinAmount: Rupees(1000), Invested: Rupees(999)}
	err := inv.Validate()
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if err.Error() != "amount must be at least ₹1,000" {
		t.Fatalf("message = %q", err.Error())
	}
	var bm *BelowMinimumError
	if !errors.As(err, &bm) || bm.Min != Rupees(1000) {
		t.Fatalf("errors.As failed: %v", err)
	}

	inv.Invested = Rupees(1000)
	if err := inv.Validate(); err != nil {
		t.Fatalf("exact minimum should pass: %v", err)
	}
	inv.Name = " "
	if err := inv.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	zero := Investment{Name: "PPF"}
	if err := zero.Validate(); !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("zero amount should be rejected, got %v", err)
	}
}

func TestGoalValidate(t *testing.T) {
	good := Goal{Title: "Bike", Target: Rupees(60000), Saved: Rupees(1000), Deadline: "2025-01-31"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.Progress() != 2 || good.Remaining() != Rupees(59000) {
		t.Fatalf("progress=%d remaining=%v", good.Progress(), good.Remaining())
	}
	bad := good
	bad.Title = ""
	if !errors.Is(bad.Validate(), ErrEmptyTitle) {
		t.Fatal("expected ErrEmptyTitle")
	}
	bad = good
	bad.Deadline = "2025-02-30"
	if !errors.Is(bad.Validate(), ErrInvalidDate) {
		t.Fatal("expected ErrInvalidDate")
	}
	over := Goal{Title: "x", Target: Rupees(10), Saved: Rupees(20)}
	if over.Remaining() != (Money{}) {
		t.Fatalf("remaining should clamp at zero, got %v", over.Remaining())
	}
}

func TestProfilePatchApply(t *testing.T) {
	base := UserProfile{ID: "u1", Email: "a@b.c", MonthlyIncome: Rupees(20000)}
	done := true
	gig := "delivery"
	got := ProfilePatch{GigType: &gig, OnboardingCompleted: &done}.Apply(base)
	if got.Email != "a@b.c" || got.MonthlyIncome != Rupees(20000) {
		t.Fatalf("merge lost fields: %+v", got)
	}
	if got.GigType != "delivery" || !got.OnboardingCompleted {
		t.Fatalf("patch not applied: %+v", got)
	}
	if !(ProfilePatch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
}

func TestParseDateKey(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got, err := ParseDateKey("2024-02-29", loc)
	if err != nil {
		t.Fatal(err)
	}
	if got.Location() != loc || got.Day() != 29 || got.Hour() != 0 {
		t.Fatalf("parsed %v", got)
	}
	for _, bad := range []string{"", "2024-13-01", "yesterday", "2023-02-29"} {
		if _, err := ParseDateKey(bad, loc); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("%q: expected ErrInvalidDate, got %v", bad, err)
		}
	}
	if NewDateKey(got) != "2024-02-29" {
		t.Fatal("NewDateKey mismatch")
	}
}

func TestAmountFromLenient(t *testing.T) {
	cases := []struct {
		in   any
		want int64
	}{
		{nil, 0},
		{"", 0},
		{"abc", 0},
		{true, 0},
		{map[string]any{}, 0},
		{math.NaN(), 0},
		{int64(250), 25000},
		{250, 25000},
		{99.5, 9950},
		{"1,200", 120000},
		{json.Number("12.34"), 1234},
		{1e12, 100_000_000_000_000},
		{1e20, 0},
		{-1e20, 0},
		{"99999999999999999999", 0},
		{json.Number("1e13"), 0},
	}
	for _, tc := range cases {
		if got := AmountFrom(tc.in); got.Cents != tc.want {
			t.Errorf("AmountFrom(%#v) = %d, want %d", tc.in, got.Cents, tc.want)
		}
	}
	if h := HoursFrom("7.5"); !h.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("HoursFrom = %v", h)
	}
	if IntFrom(3.9) != 3 || StringFrom(12) != "" || BoolFrom("true") {
		t.Error("scalar coercion mismatch")
	}
}
