package api

import (
	"errors"

	"github.com/fatimetou23083/CacheFlow/httpx"
	"github.com/fatimetou23083/CacheFlow/weather"
)

func (a *API) getWeather(c httpx.Context) error {
	w, err := a.weather.Get(c.Request().Context(), c.Param("city"))
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(httpx.StatusOK, w)
}

func (a *API) refreshWeather(c httpx.Context) error {
	w, err := a.weather.Refresh(c.Request().Context(), c.Param("city"))
	if err != nil {
		return weatherError(err)
	}
	return c.JSON(httpx.StatusOK, w)
}

func weatherError(err error) error {
	switch {
	case errors.Is(err, weather.ErrEmptyCity):
		return httpx.HTTPError(httpx.StatusBadRequest, "city is required")
	case errors.Is(err, weather.ErrCityNotFound):
		return httpx.HTTPError(httpx.StatusNotFound, "city not found")
	default:
		return err
	}
}
