package middleware

import (
	stderrors "errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/wms-platform/lpn-service/pkg/errors"
)

var validatorOnce sync.Once

var (
	lpnIDRegex        = regexp.MustCompile(`^LPN[0-9]{16}$`)
	skuRegex          = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.\-_]{0,63}$`)
	locationCodeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9\-]{0,31}$`)
)

// InitValidator registers the inventory validators on gin's binding engine
func InitValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("lpn_id", matches(lpnIDRegex))
		_ = v.RegisterValidation("sku", matches(skuRegex))
		_ = v.RegisterValidation("location_code", matches(locationCodeRegex))

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "lpn_id":
		return "must be a valid LPN id (format: LPN + 16 digits)"
	case "sku":
		return "must be a valid SKU"
	case "location_code":
		return "must be a valid location code"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

// BindAndValidate binds the JSON body into obj and validates it
func BindAndValidate(c *gin.Context, obj interface{}) *errors.AppError {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if stderrors.As(err, &validationErrors) {
		appErr := errors.ErrValidation("validation failed")
		for _, e := range validationErrors {
			appErr.WithDetail(e.Field(), formatValidationError(e))
		}
		return appErr
	}
	return errors.ErrBadRequest("invalid request body: " + err.Error())
}
