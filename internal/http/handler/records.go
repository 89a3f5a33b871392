package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"portfolioadmin/internal/collection"
	"portfolioadmin/internal/model"
	"portfolioadmin/internal/store"
)

// Collection is the part of collection.Sync the HTTP surface uses.
type Collection[T any] interface {
	State() collection.State[T]
	Add(ctx context.Context, record T) (string, error)
	Update(ctx context.Context, id string, patch model.Fields) error
	Remove(ctx context.Context, id string) error
}

type createdPayload struct {
	ID string `json:"id"`
}

// ListRecords returns the current mirror and loading flag.
//
// @Summary List records
// @Tags records
// @Produce json
// @Param collection path string true "certificates or projects"
// @Success 200 {object} map[string]any
// @Router /api/{collection} [get]
func ListRecords[T any](coll Collection[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(coll.State())
	}
}

// CreateRecord adds a record from a JSON body. id and createdAt in the body
// are ignored.
//
// @Summary Create record
// @Tags records
// @Accept json
// @Produce json
// @Param collection path string true "certificates or projects"
// @Success 201 {object} createdPayload
// @Failure 400 {object} errorPayload
// @Router /api/{collection} [post]
func CreateRecord[T any](coll Collection[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var record T
		if err := c.BodyParser(&record); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		id, err := coll.Add(c.UserContext(), record)
		if err != nil {
			return writeWriteError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(createdPayload{ID: id})
	}
}

// UpdateRecord merges a JSON patch into the record. A null value removes
// the field.
//
// @Summary Update record
// @Tags records
// @Accept json
// @Param collection path string true "certificates or projects"
// @Param id path string true "record id"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Router /api/{collection}/{id} [patch]
func UpdateRecord[T any](coll Collection[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var patch model.Fields
		if err := c.BodyParser(&patch); err != nil || patch == nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		if err := coll.Update(c.UserContext(), c.Params("id"), patch); err != nil {
			return writeWriteError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DeleteRecord removes the record. Deleting a missing id succeeds.
//
// @Summary Delete record
// @Tags records
// @Param collection path string true "certificates or projects"
// @Param id path string true "record id"
// @Success 204
// @Router /api/{collection}/{id} [delete]
func DeleteRecord[T any](coll Collection[T]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := coll.Remove(c.UserContext(), c.Params("id")); err != nil {
			return writeWriteError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func writeWriteError(c *fiber.Ctx, err error) error {
	if errors.Is(err, collection.ErrInvalidRecord) {
		return writeError(c, fiber.StatusBadRequest, "INVALID_RECORD", "record fields do not match the collection")
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "record not found")
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}
