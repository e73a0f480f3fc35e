package helpers

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator es la instancia compartida (cachea metadata de structs).
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// nombres de campo como en el JSON
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// DecodeAndValidate = ReadJSON + validator.Struct.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v any) error {
	if err := ReadJSON(w, r, v); err != nil {
		return err
	}
	return Validator().Struct(v)
}

// ListFilter arma el filtro desde ?page, ?page_size, ?search, ?category.
// Valores no numéricos caen al default del motor.
func ListFilter(r *http.Request, scope repository.Scope) repository.ListFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return repository.ListFilter{
		Scope:    scope,
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     page,
		PageSize: size,
	}
}
