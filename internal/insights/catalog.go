package insights

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func catalogPath(kind CatalogKind) (string, url.Values) {
	switch kind {
	case KindFD:
		return "/fds", nil
	case KindBond:
		return "/bonds", nil
	case KindSavings:
		return "/savings", nil
	case KindMutualFund:
		return "/mutual-funds", url.Values{"limit": {strconv.Itoa(mutualFundLimit)}}
	}
	return "", nil
}

// Catalog lists the investable products of one family. The catalog is the
// same for every user, so it is cached once per kind.
func (c *Client) Catalog(ctx context.Context, kind CatalogKind) ([]CatalogItem, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown catalog kind %q", kind)
	}
	path, q := catalogPath(kind)
	return cached(c, cacheKey(EndpointCatalog, "", string(kind)), func() ([]CatalogItem, error) {
		var w catalogWire
		if err := c.do(ctx, EndpointCatalog, http.MethodGet, path, q, nil, &w); err != nil {
			return nil, err
		}
		return normalizeCatalog(kind, w), nil
	})
}

// Loans lists loan offers, narrowed server side by type and risk.
func (c *Client) Loans(ctx context.Context, f LoanFilter) ([]LoanOffer, error) {
	q := url.Values{}
	if t := strings.TrimSpace(f.Type); t != "" {
		q.Set("type", t)
	}
	if r := strings.TrimSpace(f.Risk); r != "" {
		q.Set("risk", r)
	}
	return cached(c, cacheKey(EndpointLoans, "", q.Encode()), func() ([]LoanOffer, error) {
		var w loansWire
		if err := c.do(ctx, EndpointLoans, http.MethodGet, "/loans", q, nil, &w); err != nil {
			return nil, err
		}
		out := make([]LoanOffer, 0, len(w.Loans))
		for _, l := range w.Loans {
			out = append(out, normalizeLoan(l))
		}
		return out, nil
	})
}
