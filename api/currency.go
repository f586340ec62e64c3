package api

import (
	"errors"
	"strconv"
	"strings"

	"github.com/fatimetou23083/CacheFlow/currency"
	"github.com/fatimetou23083/CacheFlow/httpx"
)

func (a *API) getRate(c httpx.Context) error {
	from, to := c.Param("from"), c.Param("to")
	rate, err := a.currencies.GetExchangeRate(c.Request().Context(), from, to)
	if err != nil {
		return currencyError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]any{
		"from": strings.ToUpper(strings.TrimSpace(from)),
		"to":   strings.ToUpper(strings.TrimSpace(to)),
		"rate": rate,
	})
}

func (a *API) convert(c httpx.Context) error {
	from, to := c.Param("from"), c.Param("to")
	amount, err := strconv.ParseFloat(c.Param("amount"), 64)
	if err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "amount must be a number")
	}

	ctx := c.Request().Context()
	converted, err := a.currencies.Convert(ctx, from, to, amount)
	if err != nil {
		return currencyError(err)
	}
	rate, err := a.currencies.GetExchangeRate(ctx, from, to)
	if err != nil {
		return currencyError(err)
	}
	return c.JSON(httpx.StatusOK, map[string]any{
		"from":            strings.ToUpper(strings.TrimSpace(from)),
		"to":              strings.ToUpper(strings.TrimSpace(to)),
		"amount":          amount,
		"convertedAmount": converted,
		"rate":            rate,
	})
}

func (a *API) listCurrencies(c httpx.Context) error {
	all, err := a.currencies.All(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, all)
}

func (a *API) supportedCurrencies(c httpx.Context) error {
	return c.JSON(httpx.StatusOK, map[string]any{
		"supported": a.currencies.Supported(),
	})
}

func (a *API) refreshRates(c httpx.Context) error {
	if err := a.currencies.RefreshRates(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, map[string]string{"message": "rates refreshed"})
}

func currencyError(err error) error {
	switch {
	case errors.Is(err, currency.ErrEmptyCode):
		return httpx.HTTPError(httpx.StatusBadRequest, "currency codes cannot be empty")
	case errors.Is(err, currency.ErrNegativeAmount):
		return httpx.HTTPError(httpx.StatusBadRequest, "amount must be positive")
	case errors.Is(err, currency.ErrUnsupportedCode):
		return httpx.HTTPError(httpx.StatusBadRequest, "unsupported currency code")
	default:
		return err
	}
}
