package config

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"crmgate/internal/postgrest"
)

// один экземпляр: validator кеширует описание структур
var (
	validate *validator.Validate
	trans    ut.Translator
)

// Validate проверяет теги validate и отдаёт переведённые ошибки одной строкой.
func Validate[T any](structure T) error {
	err := validate.Struct(structure)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func validListOp(fl validator.FieldLevel) bool {
	op := postgrest.Operator(fl.Field().String())
	return op == "" || op.IsKnown()
}

func validNullsPolicy(fl validator.FieldLevel) bool {
	_, ok := postgrest.ParseNullsPolicy(fl.Field().String())
	return ok
}

func registerRule(tag, message string, fn validator.Func) {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
	err := validate.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, message, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Value().(string))
			return msg
		},
	)
	if err != nil {
		panic(err)
	}
}

func init() {
	locale := en.New()
	uni := ut.New(locale, locale)
	trans, _ = uni.GetTranslator("en")

	validate = validator.New(validator.WithRequiredStructEnabled())
	// в сообщениях — имена ключей конфига, а не полей Go
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic(err)
	}
	registerRule("list_op", "{0} has unknown operator '{1}'", validListOp)
	registerRule("nulls_policy", "{0} has unknown nulls policy '{1}'", validNullsPolicy)
}
