package http

import (
	"encoding/json"
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	cn "github.com/dogma-project/dogma/common/constant"
	"github.com/google/uuid"

	"github.com/dogma-project/dogma/common"

	"github.com/gofiber/fiber/v2"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"

	"gopkg.in/go-playground/validator.v9"
)

// DecodeHandlerFunc is a handler which works with the WithBody decorator. It
// receives a struct which was decoded and validated by the decorator before.
// Ex: json -> withBody -> DecodeHandlerFunc.
type DecodeHandlerFunc func(p any, c *fiber.Ctx) error

// PayloadContextValue is a wrapper type used to keep Context.Locals safe.
type PayloadContextValue string

// ConstructorFunc representing a constructor of any type.
type ConstructorFunc func() any

// decoderHandler decodes payload coming from requests.
type decoderHandler struct {
	handler      DecodeHandlerFunc
	constructor  ConstructorFunc
	structSource any
}

func newOfType(s any) any {
	t := reflect.TypeOf(s)
	v := reflect.New(t.Elem())

	return v.Interface()
}

// FiberHandlerFunc decodes the incoming request's body to a Go struct,
// validates it, rejects extraneous fields not defined in the struct, and
// finally calls the wrapped handler function.
func (d *decoderHandler) FiberHandlerFunc(c *fiber.Ctx) error {
	var s any

	if d.constructor != nil {
		s = d.constructor()
	} else {
		s = newOfType(d.structSource)
	}

	bodyBytes := c.Body()

	if err := json.Unmarshal(bodyBytes, s); err != nil {
		return WithError(c, common.ValidationError{Code: cn.ErrBadRequest.Error(), Title: "Bad Request", Message: err.Error()})
	}

	marshaled, err := json.Marshal(s)
	if err != nil {
		return WithError(c, err)
	}

	var originalMap, marshaledMap map[string]any

	if err := json.Unmarshal(bodyBytes, &originalMap); err != nil {
		return WithError(c, err)
	}

	if err := json.Unmarshal(marshaled, &marshaledMap); err != nil {
		return WithError(c, err)
	}

	// diffFields holds fields present in the original payload but not recognized by the struct.
	diffFields := make(common.UnknownFields)

	for key, value := range originalMap {
		if _, ok := marshaledMap[key]; !ok {
			diffFields[key] = value
		}
	}

	if len(diffFields) > 0 {
		return WithError(c, common.ValidateBadRequestFieldsError(common.FieldValidations{}, diffFields, ""))
	}

	if err := ValidateStruct(s); err != nil {
		return WithError(c, err)
	}

	c.Locals("fields", diffFields)

	parseMetadata(s, originalMap)

	return d.handler(s, c)
}

// WithDecode wraps a handler function, providing it with a struct instance created using the provided constructor function.
func WithDecode(c ConstructorFunc, h DecodeHandlerFunc) fiber.Handler {
	d := &decoderHandler{
		handler:     h,
		constructor: c,
	}

	return d.FiberHandlerFunc
}

// WithBody wraps a handler function, providing it with an instance of the specified struct.
func WithBody(s any, h DecodeHandlerFunc) fiber.Handler {
	d := &decoderHandler{
		handler:      h,
		structSource: s,
	}

	return d.FiberHandlerFunc
}

// SetBodyInContext is a higher-order function that wraps a Fiber handler, injecting the decoded body into the request context.
func SetBodyInContext(handler fiber.Handler) DecodeHandlerFunc {
	return func(s any, c *fiber.Ctx) error {
		c.Locals(string(PayloadContextValue("payload")), s)
		return handler(c)
	}
}

// GetPayloadFromContext retrieves the decoded request payload from the Fiber context.
func GetPayloadFromContext(c *fiber.Ctx) any {
	return c.Locals(string(PayloadContextValue("payload")))
}

// ValidateStruct validates a struct against defined validation rules, using the validator package.
func ValidateStruct(s any) error {
	v, trans := newValidator()

	k := reflect.ValueOf(s).Kind()
	if k == reflect.Ptr {
		k = reflect.ValueOf(s).Elem().Kind()
	}

	if k != reflect.Struct {
		return nil
	}

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return common.ValidateInternalError(err, "")
	}

	for _, fieldError := range validationErrors {
		switch fieldError.Tag() {
		case "keymax":
			return common.ValidateBusinessError(cn.ErrMetadataKeyTooLong, "", fieldError.Translate(trans))
		case "valuemax":
			return common.ValidateBusinessError(cn.ErrMetadataValTooLong, "", fieldError.Translate(trans))
		case "nonested":
			return common.ValidateBusinessError(cn.ErrInvalidMetadataNest, "")
		}
	}

	return malformedRequestErr(validationErrors, trans)
}

// ParseUUIDPathParameters globally, considering all path parameters are UUIDs.
func ParseUUIDPathParameters(c *fiber.Ctx) error {
	params := c.AllParams()

	var invalidParams []string

	for param, value := range params {
		parsedUUID, err := uuid.Parse(value)
		if err != nil {
			invalidParams = append(invalidParams, param)
			continue
		}

		c.Locals(param, parsedUUID)
	}

	if len(invalidParams) > 0 {
		return WithError(c, common.ValidateBusinessError(cn.ErrInvalidPathParam, "", strings.Join(invalidParams, ", ")))
	}

	return c.Next()
}

//nolint:ireturn
func newValidator() (*validator.Validate, ut.Translator) {
	locale := en.New()
	uni := ut.New(locale, locale)

	trans, _ := uni.GetTranslator("en")

	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	_ = v.RegisterValidation("keymax", validateMetadataKeyMaxLength)
	_ = v.RegisterValidation("nonested", validateMetadataNestedValues)
	_ = v.RegisterValidation("valuemax", validateMetadataValueMaxLength)

	for _, tag := range []string{"keymax", "valuemax", "nonested"} {
		tag := tag

		_ = v.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
			return ut.Add(tag, "{0}", true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, formatErrorFieldName(fe.Field()))

			return t
		})
	}

	return v, trans
}

// validateMetadataNestedValues checks if there are nested metadata structures.
func validateMetadataNestedValues(fl validator.FieldLevel) bool {
	return fl.Field().Kind() != reflect.Map
}

// validateMetadataKeyMaxLength checks if a metadata key (always a string) length is allowed.
func validateMetadataKeyMaxLength(fl validator.FieldLevel) bool {
	limitParam := fl.Param()

	limit := 100

	if limitParam != "" {
		if parsedParam, err := strconv.Atoi(limitParam); err == nil {
			limit = parsedParam
		}
	}

	return len(fl.Field().String()) <= limit
}

// validateMetadataValueMaxLength checks metadata value max length.
func validateMetadataValueMaxLength(fl validator.FieldLevel) bool {
	limitParam := fl.Param()

	limit := 2000

	if limitParam != "" {
		if parsedParam, err := strconv.Atoi(limitParam); err == nil {
			limit = parsedParam
		}
	}

	var value string

	switch fl.Field().Kind() {
	case reflect.Int:
		value = strconv.Itoa(int(fl.Field().Int()))
	case reflect.Float64:
		value = strconv.FormatFloat(fl.Field().Float(), 'f', -1, 64)
	case reflect.String:
		value = fl.Field().String()
	case reflect.Bool:
		value = strconv.FormatBool(fl.Field().Bool())
	default:
		return false
	}

	return len(value) <= limit
}

var fieldNamePattern = regexp.MustCompile(`\[(.+?)]`)

// formatErrorFieldName formats metadata field error names for error messages.
func formatErrorFieldName(text string) string {
	matches := fieldNamePattern.FindStringSubmatch(text)
	if len(matches) > 1 {
		return matches[1]
	}

	return text
}

func malformedRequestErr(errs validator.ValidationErrors, trans ut.Translator) common.ValidationKnownFieldsError {
	invalidFields := make(common.FieldValidations, len(errs))
	for _, e := range errs {
		invalidFields[e.Field()] = e.Translate(trans)
	}

	var vErr common.ValidationKnownFieldsError
	_ = errors.As(common.ValidateBadRequestFieldsError(invalidFields, common.UnknownFields{}, ""), &vErr)

	return vErr
}

// parseMetadata defaults an absent "metadata" key to an empty map, per RFC7396
// JSON Merge Patch semantics, so downstream code can range over it without a nil check.
func parseMetadata(s any, originalMap map[string]any) {
	val := reflect.ValueOf(s)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return
	}

	val = val.Elem()

	metadataField := val.FieldByName("Metadata")
	if !metadataField.IsValid() || !metadataField.CanSet() {
		return
	}

	if _, exists := originalMap["metadata"]; !exists && metadataField.Kind() == reflect.Map {
		metadataField.Set(reflect.MakeMap(metadataField.Type()))
	}
}
