package api

import (
	"slices"

	"github.com/fatimetou23083/CacheFlow/httpx"
)

func (a *API) cacheStats(c httpx.Context) error {
	ctx := c.Request().Context()

	store := "up"
	if err := a.store.Ping(ctx); err != nil {
		store = "down"
		a.log.Warn("cache store unreachable", "error", err)
	}

	names := a.cache.Names()
	caches := make(map[string]any, len(names))
	for _, name := range names {
		caches[name] = a.cache.Statistics(name)
	}

	return c.JSON(httpx.StatusOK, map[string]any{
		"store":  store,
		"caches": caches,
	})
}

func (a *API) clearCache(c httpx.Context) error {
	name := c.Param("name")
	if !slices.Contains(a.cache.Names(), name) {
		return httpx.HTTPError(httpx.StatusBadRequest, "unknown cache")
	}
	if err := a.cache.EvictAll(c.Request().Context(), name); err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, map[string]string{"message": "cache " + name + " cleared"})
}

func (a *API) clearAllCaches(c httpx.Context) error {
	if err := a.cache.EvictAll(c.Request().Context(), a.cache.Names()...); err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, map[string]string{"message": "all caches cleared"})
}
