package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Mexidense/ppd/internal/http/middleware"
	"github.com/Mexidense/ppd/internal/payment"
	"github.com/Mexidense/ppd/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// challengePayload is the body of a 402 response.
type challengePayload struct {
	Status           string `json:"status"`
	Code             string `json:"code"`
	SatoshisRequired int64  `json:"satoshisRequired"`
	DerivationPrefix string `json:"derivationPrefix"`
	Description      string `json:"description"`
}

// duplicatePayload is the body of a 409 response. Purchase is the row already on file.
type duplicatePayload struct {
	errorPayload
	TransactionID string `json:"transactionId"`
	Purchase      any    `json:"purchase,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps a service or payment error onto the HTTP taxonomy.
func writeServiceError(c *fiber.Ctx, err error) error {
	var (
		required  *service.PaymentRequiredError
		rejected  *service.PaymentRejectedError
		duplicate *service.DuplicatePurchaseError
		invalid   *service.ValidationError
	)
	switch {
	case errors.As(err, &required):
		return writeChallenge(c, required.Challenge)
	case errors.As(err, &rejected):
		return writeError(c, fiber.StatusBadRequest, rejected.Verification.Code, rejected.Verification.Reason)
	case errors.As(err, &duplicate):
		res := duplicatePayload{
			errorPayload: errorPayload{
				RequestID: requestIDFromCtx(c),
				Error: errorEnvelope{
					Code:    "DUPLICATE_TRANSACTION",
					Message: "transaction already recorded",
				},
			},
			TransactionID: duplicate.TransactionID,
		}
		if duplicate.Existing != nil {
			res.Purchase = duplicate.Existing
		}
		return c.Status(fiber.StatusConflict).JSON(res)
	case errors.As(err, &invalid):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", invalid.Error())
	case errors.Is(err, payment.ErrMalformedPayment):
		return writeError(c, fiber.StatusBadRequest, payment.CodeMalformed, "malformed payment header")
	case errors.Is(err, service.ErrIDRequired):
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "id is required")
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, service.ErrBuyerRequired):
		return writeError(c, fiber.StatusUnauthorized, "BUYER_REQUIRED", "buyer address is required")
	case errors.Is(err, service.ErrAccessDenied):
		return writeError(c, fiber.StatusForbidden, "ACCESS_DENIED", "document has not been purchased by this buyer")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// writeChallenge answers a purchase without payment with 402 and a fresh prefix.
func writeChallenge(c *fiber.Ctx, ch payment.Challenge) error {
	for k, v := range ch.Headers() {
		c.Set(k, v)
	}
	return c.Status(fiber.StatusPaymentRequired).JSON(challengePayload{
		Status:           "error",
		Code:             payment.CodePaymentRequired,
		SatoshisRequired: ch.SatoshisRequired,
		DerivationPrefix: ch.DerivationPrefix,
		Description:      "A BSV payment of " + strconv.FormatInt(ch.SatoshisRequired, 10) + " satoshis is required to purchase this document.",
	})
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		case fiber.StatusRequestHeaderFieldsTooLarge:
			return writeError(c, status, "HEADERS_TOO_LARGE", "request headers too large")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
