package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"loanhub/internal/core/domain"

	"github.com/go-playground/validator/v10"
)

var v = newValidator()

var phonePattern = regexp.MustCompile(`^\d{2,3}-\d{3,4}-\d{4}$`)

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names instead of Go field names
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	// kr_phone: 010-1234-5678, 02-123-4567. Empty clears the number.
	_ = val.RegisterValidation("kr_phone", func(fl validator.FieldLevel) bool {
		phone := fl.Field().String()
		return phone == "" || phonePattern.MatchString(phone)
	})
	return val
}

// Struct checks the validate tags of s. Failures come back as a
// domain validation error keyed by json field name.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewError(domain.ErrValidation, err.Error())
	}
	violations := domain.Violations{}
	for _, fe := range verrs {
		violations.Add(fe.Field(), message(fe))
	}
	return violations.Err("입력값이 올바르지 않습니다")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "필수 항목입니다"
	case "min", "gte":
		return "최소값은 " + fe.Param() + " 입니다"
	case "max", "lte":
		return "최대값은 " + fe.Param() + " 입니다"
	case "len":
		return "길이는 " + fe.Param() + " 이어야 합니다"
	case "oneof":
		return "허용값: " + fe.Param()
	case "numeric":
		return "숫자만 입력하세요"
	case "email":
		return "이메일 형식이 아닙니다"
	case "kr_phone":
		return "올바른 전화번호 형식이 아닙니다 (예: 010-1234-5678)"
	case "datetime":
		return "날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)"
	}
	return "유효하지 않은 값입니다 (" + fe.Tag() + ")"
}
