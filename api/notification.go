package api

import (
	"errors"

	"github.com/fatimetou23083/CacheFlow/httpx"
	"github.com/fatimetou23083/CacheFlow/notification"
)

type sendNotificationRequest struct {
	Message string `json:"message"`
	Kind    string `json:"type"`
	UserID  string `json:"userId"`
}

func (a *API) sendNotification(c httpx.Context) error {
	var req sendNotificationRequest
	if err := c.Bind(&req); err != nil {
		return httpx.HTTPError(httpx.StatusBadRequest, "malformed request body")
	}
	n, err := a.notifications.CreateAndPublish(c.Request().Context(), req.Message, req.Kind, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, notification.ErrEmptyMessage):
			return httpx.HTTPError(httpx.StatusBadRequest, "message is required")
		case errors.Is(err, notification.ErrInvalidKind):
			return httpx.HTTPError(httpx.StatusBadRequest, "unknown notification type")
		default:
			return err
		}
	}
	return c.JSON(httpx.StatusOK, n)
}

func (a *API) listNotifications(c httpx.Context) error {
	all, err := a.notifications.All(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, all)
}

func (a *API) userNotifications(c httpx.Context) error {
	list, err := a.notifications.ForUser(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, list)
}

func (a *API) broadcastNotifications(c httpx.Context) error {
	list, err := a.notifications.Broadcasts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(httpx.StatusOK, list)
}
