package handler

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"portfolioadmin/internal/http/middleware"
	"portfolioadmin/internal/logging"
	"portfolioadmin/internal/media"
)

// UploadMedia forwards a multipart "file" field to the media host.
//
// @Summary Upload media
// @Tags media
// @Accept mpfd
// @Produce json
// @Param file formData file true "asset"
// @Success 201 {object} media.UploadResult
// @Failure 400 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /api/media [post]
func UploadMedia(mc media.Client, log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := mc.Upload(c.UserContext(), f, fh.Filename)
		if err != nil {
			log.Error(c.UserContext(), "media_upload_failed", "request_id", middleware.RequestIDFrom(c), "filename", fh.Filename, "error", err)
			var upErr *media.UploadError
			if errors.As(err, &upErr) {
				return writeError(c, fiber.StatusBadGateway, "UPLOAD_FAILED", "upload failed")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	}
}

// DeleteMedia deletes an asset through the delete intermediary. The asset
// id may contain slashes.
//
// @Summary Delete media
// @Tags media
// @Param kind path string true "image or video"
// @Param assetId path string true "asset id"
// @Success 204
// @Failure 400 {object} errorPayload
// @Failure 502 {object} errorPayload
// @Router /api/media/{kind}/{assetId} [delete]
func DeleteMedia(mc media.Client, log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, err := media.ParseResourceType(c.Params("kind"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "kind must be image or video")
		}
		assetID, err := url.PathUnescape(c.Params("*"))
		if err != nil || assetID == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid asset id")
		}

		if err := mc.Delete(c.UserContext(), assetID, kind); err != nil {
			log.Error(c.UserContext(), "media_delete_failed", "request_id", middleware.RequestIDFrom(c), "asset_id", assetID, "error", err)
			return writeError(c, fiber.StatusBadGateway, "DELETE_FAILED", "delete failed")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type destroyRequest struct {
	PublicID     string `json:"publicId"`
	ResourceType string `json:"resourceType"`
}

type destroyResponse struct {
	Success bool   `json:"success"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CloudinaryDelete is the trusted delete intermediary: it performs the
// authenticated deletion on behalf of clients that hold no secret.
//
// @Summary Delete hosted asset
// @Tags media
// @Accept json
// @Produce json
// @Param body body destroyRequest true "asset"
// @Success 200 {object} destroyResponse
// @Failure 400 {object} destroyResponse
// @Failure 502 {object} destroyResponse
// @Router /api/cloudinary-delete [post]
func CloudinaryDelete(d media.Destroyer, log logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req destroyRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(destroyResponse{Error: "invalid request body"})
		}
		if req.PublicID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(destroyResponse{Error: "publicId is required"})
		}
		kind, err := media.ParseResourceType(req.ResourceType)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(destroyResponse{Error: "resourceType must be image or video"})
		}

		result, err := d.Destroy(c.UserContext(), req.PublicID, kind)
		if err != nil {
			log.Error(c.UserContext(), "media_destroy_failed", "request_id", middleware.RequestIDFrom(c), "public_id", req.PublicID, "error", err)
			return c.Status(fiber.StatusBadGateway).JSON(destroyResponse{Error: "delete failed"})
		}

		log.Info(c.UserContext(), "media_destroyed", "request_id", middleware.RequestIDFrom(c), "public_id", req.PublicID, "resource_type", string(kind), "result", result)
		return c.JSON(destroyResponse{Success: true, Result: result})
	}
}
