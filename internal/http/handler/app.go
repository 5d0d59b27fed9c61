package handler

import "github.com/gofiber/fiber/v2"

// requestHeadSlack is read-buffer room for the request line and every header other
// than X-BSV-Payment.
const requestHeadSlack = 8 << 10

// Limits bounds what one request may carry.
type Limits struct {
	BodyBytes int
	// PaymentHeaderBytes is the largest X-BSV-Payment value that reaches a handler.
	// Larger request heads are refused by the server with 431.
	PaymentHeaderBytes int
}

// NewApp builds the Fiber app with the standard error envelope and request limits.
// fasthttp reads the whole request head into one buffer, so it is sized from the
// payment header limit.
func NewApp(l Limits) *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler:   ErrorHandler(),
		BodyLimit:      l.BodyBytes,
		ReadBufferSize: l.PaymentHeaderBytes + requestHeadSlack,
	})
}
