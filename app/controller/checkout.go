package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/wildventure-hub/ms-go-checkout/app/factory"
	"github.com/wildventure-hub/ms-go-checkout/app/mapper"
	"github.com/wildventure-hub/ms-go-checkout/app/pricing"
	"github.com/wildventure-hub/ms-go-checkout/app/provider"
	"github.com/wildventure-hub/ms-go-checkout/app/service"
	"github.com/wildventure-hub/ms-go-checkout/app/types"
	"github.com/wildventure-hub/ms-go-checkout/app/wildspeak"
)

type CheckoutController struct {
	checkoutService *service.CheckoutService
	analyzer        wildspeak.Analyzer
	logger          logrus.FieldLogger
}

func NewCheckoutController(checkoutService *service.CheckoutService, analyzer wildspeak.Analyzer) *CheckoutController {
	return &CheckoutController{
		checkoutService: checkoutService,
		analyzer:        analyzer,
		logger:          factory.NewModuleLogger("checkout-controller"),
	}
}

func (c *CheckoutController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *CheckoutController) ListTiers(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.ListTiersResponse{Tiers: mapper.TiersToAPI(pricing.Tiers())})
}

func (c *CheckoutController) ResolvePrice(ctx echo.Context) error {
	tierID := strings.TrimSpace(ctx.QueryParam("tier"))
	country := strings.ToUpper(strings.TrimSpace(ctx.QueryParam("country")))
	if tierID == "" {
		return c.writeError(ctx, http.StatusBadRequest, "tier query parameter is required")
	}

	tier, ok := pricing.TierByID(tierID)
	if !ok {
		return c.writeError(ctx, http.StatusNotFound, "pricing tier not found")
	}

	monthly := pricing.Resolve(tier, country)
	yearly := pricing.ResolveYearly(tier, country)

	return ctx.JSON(http.StatusOK, &types.ResolvePriceResponse{
		TierId:       tier.ID,
		Country:      country,
		Amount:       monthly.Amount,
		YearlyAmount: yearly.Amount,
		Currency:     monthly.Currency,
	})
}

func (c *CheckoutController) CreatePayPalOrder(ctx echo.Context) error {
	req, err := types.NewCreateCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	session, err := c.checkoutService.CreateCheckout(ctx.Request().Context(), int32(types.ProviderType_PROVIDER_TYPE_PAYPAL), req)
	if err != nil {
		return c.writeCheckoutError(ctx, err, "Create PayPal order failed")
	}

	approvalURL := ""
	if session.ApprovalURL != nil {
		approvalURL = *session.ApprovalURL
	}
	return ctx.JSON(http.StatusOK, &types.CreateOrderResponse{
		Success:     true,
		OrderId:     session.Reference,
		ApprovalUrl: approvalURL,
		Status:      types.SessionStatus(session.Status).Label(),
	})
}

func (c *CheckoutController) CapturePayPalOrder(ctx echo.Context) error {
	req, err := types.NewCaptureOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	session, result, err := c.checkoutService.CompleteCheckout(ctx.Request().Context(), int32(types.ProviderType_PROVIDER_TYPE_PAYPAL), req.OrderId)
	if err != nil {
		return c.writeCheckoutError(ctx, err, "Capture PayPal order failed")
	}

	captureID := ""
	if session.CaptureID != nil {
		captureID = *session.CaptureID
	}
	return ctx.JSON(http.StatusOK, &types.CaptureOrderResponse{
		Success:   result.Succeeded,
		OrderId:   session.Reference,
		Status:    types.SessionStatus(session.Status).Label(),
		CaptureId: captureID,
	})
}

func (c *CheckoutController) InitializePaystackTransaction(ctx echo.Context) error {
	req, err := types.NewCreateCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}

	session, err := c.checkoutService.CreateCheckout(ctx.Request().Context(), int32(types.ProviderType_PROVIDER_TYPE_PAYSTACK), req)
	if err != nil {
		return c.writeCheckoutError(ctx, err, "Initialize Paystack transaction failed")
	}

	authorizationURL := ""
	if session.ApprovalURL != nil {
		authorizationURL = *session.ApprovalURL
	}
	return ctx.JSON(http.StatusOK, &types.InitializeTransactionResponse{
		Success:          true,
		Reference:        session.Reference,
		AuthorizationUrl: authorizationURL,
		AccessCode:       session.Metadata["access_code"],
	})
}

func (c *CheckoutController) VerifyPaystackTransaction(ctx echo.Context) error {
	req, err := types.NewVerifyTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	session, result, err := c.checkoutService.CompleteCheckout(ctx.Request().Context(), int32(types.ProviderType_PROVIDER_TYPE_PAYSTACK), req.Reference)
	if err != nil {
		return c.writeCheckoutError(ctx, err, "Verify Paystack transaction failed")
	}

	return ctx.JSON(http.StatusOK, &types.VerifyTransactionResponse{
		Success:   result.Succeeded,
		Reference: session.Reference,
		Status:    types.SessionStatus(session.Status).Label(),
		Amount:    session.AmountMinor / 100,
		Currency:  session.Currency,
		Customer: types.CustomerInfo{
			Email: session.CustomerEmail,
			Name:  session.CustomerName,
		},
		Metadata: session.Metadata,
	})
}

// HandleWebhook takes the raw body because both providers sign the exact
// bytes they sent; echo's JSON binding would destroy the signature.
func (c *CheckoutController) HandleWebhook(ctx echo.Context) error {
	payload, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "unable to read request body")
	}

	_, err = c.checkoutService.HandleWebhook(ctx.Request().Context(), payload, ctx.Request().Header)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrWebhookRejected), errors.Is(err, service.ErrProviderUnsupported):
			return c.writeError(ctx, http.StatusUnauthorized, "webhook signature verification failed")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle webhook failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.WebhookAckResponse{Success: true})
}

func (c *CheckoutController) GetSession(ctx echo.Context) error {
	reference := strings.TrimSpace(ctx.Param("reference"))
	if reference == "" {
		return c.writeError(ctx, http.StatusBadRequest, "reference is required")
	}

	session, err := c.checkoutService.GetSessionByReference(ctx.Request().Context(), reference)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "checkout session not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get session failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	events, err := c.checkoutService.ListSessionEvents(ctx.Request().Context(), session.ID)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List session events failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.SessionEnvelopeResponse{
		Session: mapper.SessionToAPI(session),
		Events:  mapper.EventsToAPI(events),
	})
}

func (c *CheckoutController) AnalyzeWildlifeAudio(ctx echo.Context) error {
	var meta wildspeak.AudioMetadata
	if err := ctx.Bind(&meta); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if meta.Duration <= 0 || meta.Frequency <= 0 {
		return c.writeError(ctx, http.StatusBadRequest, "duration and frequency must be positive")
	}

	analysis, err := c.analyzer.Analyze(ctx.Request().Context(), &meta)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("WildSpeak analysis failed")
		return c.writeError(ctx, http.StatusInternalServerError, "analysis unavailable")
	}

	return ctx.JSON(http.StatusOK, analysis)
}

func (c *CheckoutController) writeCheckoutError(ctx echo.Context, err error, logMessage string) error {
	var reqErr *provider.RequestFailedError
	switch {
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, service.ErrTierUnknown),
		errors.Is(err, service.ErrProviderUnsupported):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSessionNotFound):
		return c.writeError(ctx, http.StatusNotFound, "checkout session not found")
	case errors.As(err, &reqErr):
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *CheckoutController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
