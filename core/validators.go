package core

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator
)

func init() {
	locale := en.New()
	Translator, _ = ut.New(locale, locale).GetTranslator("en")
	Validate = validator.New()
	InitValidators(Validate, Translator)
}

var (
	// custom validation tags & texts
	rollNoTag   = "rollno"
	rollNoText  = "only letters, digits, dashes and underscores are allowed"
	rollNoRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	isoDateTag  = "isodate"
	isoDateText = "must be a valid calendar date in YYYY-MM-DD format"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// ISODateFormat is the only date layout accepted on the wire.
const ISODateFormat = "2006-01-02"

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(rollNoTag, rollNoValidation)
	RegisterCustomTranslation(validate, translator, rollNoTag, rollNoText)

	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	RegisterCustomTranslation(validate, translator, isoDateTag, isoDateText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// rollNoValidation only allows alphanumeric characters, dashes and underscores.
func rollNoValidation(fl validator.FieldLevel) bool {
	return rollNoRegex.MatchString(fl.Field().String())
}

// isoDateValidation requires a parseable YYYY-MM-DD calendar date.
func isoDateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(ISODateFormat, fl.Field().String())
	return err == nil
}
