// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-api/internal/domain/apperror"
	"github.com/your-org/storefront-api/internal/domain/identity"
	"github.com/your-org/storefront-api/internal/interfaces/http/middleware"
)

var registerOnce sync.Once

// RegisterValidators teaches gin's validator to compare decimal amounts numerically
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return field.Name
		})
	})
}

func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindStockExceeded, apperror.KindInsufficientStock, apperror.KindValidation:
		return http.StatusUnprocessableEntity
	case apperror.KindEmptyCart:
		return http.StatusBadRequest
	case apperror.KindInvalidState, apperror.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with the status code of its kind
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		c.JSON(status, gin.H{
			"error": "Internal server error",
			"code":  apperror.KindInternal,
		})
		return
	}

	body := gin.H{
		"error": err.Error(),
		"code":  kind,
	}
	if details := apperror.Details(err); len(details) > 0 {
		body["details"] = details
	}
	c.JSON(status, body)
}

// respondBindError renders binding failures field by field
func respondBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			fields[fe.Field()] = describeFieldError(fe)
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Invalid request data",
			"code":    apperror.KindValidation,
			"details": fields,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// currentActor returns the authenticated actor or writes a 401
func currentActor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return identity.Actor{}, false
	}
	return actor, true
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"message": message,
		"data":    data,
	})
}

func respondCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"data":    data,
	})
}
