package delivery

import (
	"errors"
	"net/http"

	"store_service/internal/domain"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status  string      `json:"Status"`
	Message string      `json:"Message"`
	Code    string      `json:"Code,omitempty"`
	Data    interface{} `json:"Data,omitempty"`
}

func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Status:  "Success",
		Message: message,
		Data:    data,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Response{
		Status:  "Fail",
		Message: message,
		Code:    code,
	})
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrItemNotInCart, http.StatusNotFound, "ITEM_NOT_IN_CART"},
	{domain.ErrEmptyCart, http.StatusBadRequest, "EMPTY_CART"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
	{domain.ErrCategoryNotFound, http.StatusNotFound, "CATEGORY_NOT_FOUND"},
	{domain.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND"},
	{domain.ErrOrderItemNotFound, http.StatusNotFound, "ORDER_ITEM_NOT_FOUND"},
	{domain.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{domain.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{domain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{domain.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
}

// mapError resolves err to an HTTP status and a stable error code. Unknown
// errors become 500 INTERNAL.
func mapError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

// failWith writes the mapped error. Internal errors are not echoed to the client.
func failWith(c *gin.Context, prefix string, err error) {
	status, code := mapError(err)
	message := prefix + ": " + err.Error()
	if status == http.StatusInternalServerError {
		message = prefix
	}
	ErrorResponse(c, status, code, message)
}
