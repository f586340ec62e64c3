package api

import (
	"errors"

	"github.com/fatimetou23083/CacheFlow/httpx"
	"github.com/fatimetou23083/CacheFlow/product"
)

type productRequest struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

func (a *API) listProducts(c httpx.Context) error {
	all, err := a.products.All(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, all)
}

func (a *API) getProduct(c httpx.Context) error {
	p, err := a.products.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return productError(err)
	}
	return c.JSON(httpx.StatusOK, p)
}

func (a *API) createProduct(c httpx.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	p, err := a.products.Create(c.Request().Context(), product.Product{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
	})
	if err != nil {
		return productError(err)
	}
	return c.JSON(httpx.StatusCreated, p)
}

func (a *API) updateProduct(c httpx.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	p, err := a.products.Update(c.Request().Context(), c.Param("id"), product.Product{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
	})
	if err != nil {
		return productError(err)
	}
	return c.JSON(httpx.StatusOK, p)
}

func (a *API) deleteProduct(c httpx.Context) error {
	if err := a.products.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return productError(err)
	}
	return c.NoContent(httpx.StatusNoContent)
}

func productError(err error) error {
	switch {
	case errors.Is(err, product.ErrNotFound):
		return httpx.HTTPError(httpx.StatusNotFound, "product not found")
	case errors.Is(err, product.ErrEmptyID), errors.Is(err, product.ErrEmptyName):
		return httpx.HTTPError(httpx.StatusBadRequest, err.Error())
	default:
		return err
	}
}
