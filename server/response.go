package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/authconnect/server/middleware"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondOK answers 200 with data in the envelope.
func RespondOK(c *gin.Context, data any) { c.JSON(http.StatusOK, DataResponse{Data: data}) }

// RespondNoContent answers 204.
func RespondNoContent(c *gin.Context) { c.Status(http.StatusNoContent) }

// RespondWithError ends the request with the error envelope for err.
// Errors that are not AppErrors become INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) { middleware.Abort(c, err) }
