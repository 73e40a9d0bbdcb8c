// Package routes exposes the /server API the embedded client page talks to.
package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/christian-bermeo-pci/plaid-webhooks/internal/connection"
	"github.com/christian-bermeo-pci/plaid-webhooks/internal/plaid"
	plaidwebhook "github.com/christian-bermeo-pci/plaid-webhooks/internal/webhooks/plaid"
)

var errNoLinkedItem = echo.NewHTTPError(http.StatusBadRequest, "no linked item; exchange a public token first")

// APIRoutes registers the /server endpoints.
type APIRoutes struct {
	log      *slog.Logger
	plaid    *plaid.Client
	conn     *connection.Controller
	webhooks *plaidwebhook.Dispatcher
	now      func() time.Time
}

// NewAPIRoutes constructs the API route registrar.
func NewAPIRoutes(log *slog.Logger, client *plaid.Client, conn *connection.Controller) *APIRoutes {
	return &APIRoutes{
		log:      log,
		plaid:    client,
		conn:     conn,
		webhooks: plaidwebhook.NewDispatcher(log, conn),
		now:      time.Now,
	}
}

// RegisterRoutes registers the /server endpoints.
func (a *APIRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/server/get_user_info", a.handleGetUserInfo)
	s.POST("/server/generate_link_token", a.handleGenerateLinkToken)
	s.POST("/server/swap_public_token", a.handleSwapPublicToken)
	s.GET("/server/transactions", a.handleTransactions)
	s.GET("/server/balances", a.handleBalances)
	s.GET("/server/create_asset_report", a.handleCreateAssetReport)
	s.POST("/server/fire_test_webhook", a.handleFireTestWebhook)
	s.POST("/server/update_webhook", a.handleUpdateWebhook)
	s.POST("/server/receive_webhook", a.handleReceiveWebhook)
}

func (a *APIRoutes) handleGetUserInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"user_status":        a.conn.Status(),
		"webhook_configured": a.plaid.WebhookURL() != "",
	})
}

func (a *APIRoutes) handleGenerateLinkToken(c echo.Context) error {
	raw, err := a.plaid.CreateLinkToken(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (a *APIRoutes) handleSwapPublicToken(c echo.Context) error {
	ctx := c.Request().Context()
	var body struct {
		PublicToken string `json:"public_token"`
	}
	if err := c.Bind(&body); err != nil || body.PublicToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "public_token is required")
	}

	result, err := a.plaid.ExchangePublicToken(ctx, body.PublicToken)
	if err != nil {
		return err
	}
	a.log.Info("Public token exchanged", "item_id", result.ItemID)

	// A failed save is logged but the exchange still succeeded: the in-memory
	// record is authoritative until the next successful write.
	if err := a.conn.Connect(ctx, result.AccessToken); err != nil {
		a.log.Warn("Connection established but not persisted", "error", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (a *APIRoutes) handleTransactions(c echo.Context) error {
	token, ok := a.conn.AccessToken()
	if !ok {
		return errNoLinkedItem
	}
	raw, err := a.plaid.Transactions(c.Request().Context(), token, a.now())
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (a *APIRoutes) handleBalances(c echo.Context) error {
	token, ok := a.conn.AccessToken()
	if !ok {
		return errNoLinkedItem
	}
	raw, err := a.plaid.Balances(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (a *APIRoutes) handleCreateAssetReport(c echo.Context) error {
	token, ok := a.conn.AccessToken()
	if !ok {
		return errNoLinkedItem
	}
	raw, err := a.plaid.CreateAssetReport(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (a *APIRoutes) handleFireTestWebhook(c echo.Context) error {
	token, ok := a.conn.AccessToken()
	if !ok {
		return errNoLinkedItem
	}
	raw, err := a.plaid.FireTestWebhook(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (a *APIRoutes) handleUpdateWebhook(c echo.Context) error {
	token, ok := a.conn.AccessToken()
	if !ok {
		return errNoLinkedItem
	}
	var body struct {
		NewURL string `json:"newUrl"`
	}
	if err := c.Bind(&body); err != nil || body.NewURL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "newUrl is required")
	}
	raw, err := a.plaid.UpdateWebhook(c.Request().Context(), token, body.NewURL)
	if err != nil {
		return err
	}
	a.plaid.SetWebhookURL(body.NewURL)
	return c.JSONBlob(http.StatusOK, raw)
}

func (a *APIRoutes) handleReceiveWebhook(c echo.Context) error {
	var ev plaidwebhook.Event
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook payload")
	}
	a.webhooks.Dispatch(c.Request().Context(), ev)
	return c.JSON(http.StatusOK, map[string]string{"status": "received"})
}
