package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/authconnect/chain"
	"github.com/kbukum/authconnect/errors"
)

// FieldError is one rejected field in an INVALID_INPUT error's "fields"
// detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var engine = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("chain_id", isChainID)
	_ = v.RegisterValidation("eth_checksum", isChecksumAddress)
	return v
})

// fieldName reports a field the way it is spelled on the wire or in
// config.yml.
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "mapstructure", "yaml"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return strings.ToLower(f.Name)
}

// Validate checks s against its `validate` struct tags. Besides the
// library's tags it understands chain_id (a positive id in the safe
// integer range, as number or 0x string) and eth_checksum (a valid EIP-55
// address).
func Validate(s any) error {
	err := engine().Struct(s)
	if err == nil {
		return nil
	}
	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return errors.Validation(err.Error())
	}

	fields := make([]FieldError, 0, len(failed))
	msgs := make([]string, 0, len(failed))
	for _, fe := range failed {
		f := FieldError{Field: fe.Field(), Message: describe(fe)}
		fields = append(fields, f)
		msgs = append(msgs, f.Field+" "+f.Message)
	}
	return errors.Validation(strings.Join(msgs, "; ")).WithDetail("fields", fields)
}

func isChainID(fl validator.FieldLevel) bool {
	f := fl.Field()
	switch {
	case f.CanUint():
		return chain.ValidateID(f.Uint()) == nil
	case f.CanInt():
		return f.Int() > 0 && chain.ValidateID(uint64(f.Int())) == nil
	case f.Kind() == reflect.String:
		_, err := chain.ParseID(f.String())
		return err == nil
	}
	return false
}

func isChecksumAddress(fl validator.FieldLevel) bool {
	_, err := chain.ChecksumAddress(fl.Field().String())
	return err == nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be an absolute URL"
	case "max":
		return "must be at most " + fe.Param() + " long"
	case "min":
		return "must be at least " + fe.Param() + " long"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte", "lte", "gt", "lt":
		return "is out of range (" + fe.Tag() + "=" + fe.Param() + ")"
	case "chain_id":
		return "must be a chain id between 1 and 2^53-1"
	case "eth_checksum":
		return "must be a checksummed account address"
	}
	return "failed " + fe.Tag()
}
