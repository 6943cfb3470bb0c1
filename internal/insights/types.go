package insights

import (
	"github.com/shopspring/decimal"

	"gigledger/internal/core"
)

// Cashflow is the 30-day outlook. Local is set when it was computed from
// the ledger instead of fetched.
type Cashflow struct {
	core.CashflowProjection
	Tips      []string
	UpdatedAt string
	Local     bool
}

type Weather struct {
	Condition string
	TempC     decimal.Decimal
}

type Hotspot struct {
	Area       string
	Traffic    string
	DistanceKM decimal.Decimal
	Score      decimal.Decimal
}

type Opportunity struct {
	BestTime      string
	BestArea      string
	ExpectedBoost core.Money
	Weather       Weather
	Traffic       string
	Hotspots      []Hotspot
	Reasons       []string
	Advice        string
	Action        string
	Why           string
	Confidence    string
}

// Location narrows the opportunity search; the zero value means unknown.
type Location struct {
	Lat, Lon float64
	Known    bool
}

type DreamStep struct {
	Title         string
	MonthlySaving core.Money
	MonthsLeft    int
}

type DreamPlan struct {
	Plan   string
	Dreams []DreamStep
}

// CatalogKind names one investment product family.
type CatalogKind string

const (
	KindFD         CatalogKind = "fd"
	KindBond       CatalogKind = "bond"
	KindSavings    CatalogKind = "savings"
	KindMutualFund CatalogKind = "mutual_fund"
)

const mutualFundLimit = 20

// MutualFundMinimum is applied to every fund; the catalog carries none.
var MutualFundMinimum = core.Rupees(500)

var CatalogKinds = []CatalogKind{KindFD, KindBond, KindSavings, KindMutualFund}

func (k CatalogKind) Valid() bool {
	switch k {
	case KindFD, KindBond, KindSavings, KindMutualFund:
		return true
	}
	return false
}

func (k CatalogKind) Label() string {
	switch k {
	case KindFD:
		return "Fixed deposits"
	case KindBond:
		return "Government bonds"
	case KindSavings:
		return "Small savings schemes"
	case KindMutualFund:
		return "Mutual funds"
	}
	return string(k)
}

// CatalogItem is one investable product, normalized across families.
type CatalogItem struct {
	Kind      CatalogKind
	Name      string
	MinAmount core.Money
	Rate      string
	Term      string
	Risk      string
	Detail    string
}

type LoanOffer struct {
	Type          string
	Bank          string
	InterestRate  string
	MaxTenure     string
	ProcessingFee string
	Eligibility   string
	Risk          string
	UseCase       string
}

// LoanFilter narrows the loan list; empty fields match everything.
type LoanFilter struct {
	Type string
	Risk string
}
