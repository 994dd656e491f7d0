package server

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

func badRequest(c *fiber.Ctx, message string, now time.Time) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{
		"error":     message,
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

func unauthorized(c *fiber.Ctx, err error) error {
	message := "Unauthorized"
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		message = richErr.Message
	}
	return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
		"error": message,
	})
}

// validationMessage joins field errors as "field: message" in field order
func validationMessage(err error) string {
	fields := goerrors.FromOzzoValidation(err, "validation failed").ValidationMap()
	if len(fields) == 0 {
		return err.Error()
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return strings.Join(parts, "; ")
}

func trimName(name string) string {
	return strings.TrimSpace(name)
}
